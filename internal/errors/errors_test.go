package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCustomerRuleErr(t *testing.T) {
	err := NewCustomerRuleErr("nationalId", "national id must contain digits or letters")

	t.Log("error is discoverable through wrapping")
	{
		wrapped := fmt.Errorf("failed to save customer - %w", err)
		var ruleErr *CustomerRuleErr
		require.True(t, errors.As(wrapped, &ruleErr), "rule error must be found in chain")
		require.Equal(t, "nationalId", ruleErr.Field())
		require.Equal(t, "national id must contain digits or letters", ruleErr.Error())
	}

	t.Log("error is marshaled as field violation")
	{
		b, err := json.Marshal(err)
		require.NoError(t, err)
		require.JSONEq(t, `{"errors":[{"field":"nationalId","message":"national id must contain digits or letters"}]}`, string(b))
	}
}

func TestCustomerNotFoundErr(t *testing.T) {
	err := NewCustomerNotFoundErr("7b45dbaa-ddf8-4ded-b858-78be123b3e6f")

	var nfErr *CustomerNotFoundErr
	require.True(t, errors.As(fmt.Errorf("lookup - %w", err), &nfErr))
	require.Equal(t, "7b45dbaa-ddf8-4ded-b858-78be123b3e6f", nfErr.ID())
	require.Equal(t, "customer with id 7b45dbaa-ddf8-4ded-b858-78be123b3e6f doesn't exist", nfErr.Error())

	b, mErr := json.Marshal(err)
	require.NoError(t, mErr)
	require.JSONEq(t, `{"id":"7b45dbaa-ddf8-4ded-b858-78be123b3e6f","message":"customer with id 7b45dbaa-ddf8-4ded-b858-78be123b3e6f doesn't exist"}`, string(b))
}
