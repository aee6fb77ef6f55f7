package cache

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/repository"
)

// CacheUpdater keeps cache in sync with changes made outside of the running process
type CacheUpdater interface {
	Listen() error
	Stop()
}

type customerWatcher interface {
	Watch(context.Context, func(*model.CustomerChange) error) error
}

type customerCacheUpdater struct {
	watcher customerWatcher
	cache   CustomerCacheRepository
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// NewCustomerCacheUpdater builds CacheUpdater which evicts every changed customer
func NewCustomerCacheUpdater(watcher customerWatcher, cache CustomerCacheRepository) CacheUpdater {
	ctx, cancel := context.WithCancel(context.Background())
	return &customerCacheUpdater{
		watcher: watcher,
		cache:   cache,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Listen blocks until Stop is called or change feed fails
func (u *customerCacheUpdater) Listen() error {
	err := u.watcher.Watch(u.ctx, func(change *model.CustomerChange) error {
		if change.Op == model.ChangeSync {
			return nil
		}

		if err := u.cache.DeleteByID(u.ctx, change.ID); err != nil {
			// entry expires by ttl anyway, feed must keep going
			logrus.Errorf("failed to evict customer %s from cache after %s - %v", change.ID, change.Op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if u.ctx.Err() == nil {
		return repository.ErrFeedClosed
	}
	return nil
}

// Stop stops listening
func (u *customerCacheUpdater) Stop() {
	u.once.Do(u.cancel)
}
