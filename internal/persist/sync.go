package persist

import (
	"context"
	"errors"
	"reflect"
	"time"

	"go.uber.org/zap"

	"finitefield.org/hanko-storefront/internal/commerce"
	"finitefield.org/hanko-storefront/internal/store"
)

const writeTimeout = 2 * time.Second

// Load reads every persisted key for a viewer. Missing keys leave the zero value.
func Load(ctx context.Context, s Scoped) (store.Hydrate, error) {
	var h store.Hydrate
	if err := getOptional(ctx, s, KeyCartItems, &h.Items); err != nil {
		return h, err
	}
	if err := getOptional(ctx, s, KeyShippingAddress, &h.ShippingAddress); err != nil {
		return h, err
	}
	if err := getOptional(ctx, s, KeyPaymentMethod, &h.PaymentMethod); err != nil {
		return h, err
	}
	var user commerce.UserInfo
	switch err := s.Get(ctx, KeyUserInfo, &user); {
	case err == nil:
		h.UserInfo = &user
	case !errors.Is(err, ErrNotFound):
		return h, err
	}
	return h, nil
}

func getOptional(ctx context.Context, s Scoped, key string, dst any) error {
	if err := s.Get(ctx, key, dst); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Sync writes the persisted slices back whenever they change. It returns the unsubscribe
// function of the underlying store listener.
func Sync(st *store.Store, s Scoped, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	return st.Subscribe(func(_ store.Action, prev, next store.State) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		write := func(key string, changed bool, value any, remove bool) {
			if !changed {
				return
			}
			var err error
			if remove {
				err = s.Delete(ctx, key)
			} else {
				err = s.Set(ctx, key, value)
			}
			if err != nil {
				logger.Warn("persist write failed", zap.String("key", key), zap.Error(err))
			}
		}

		write(KeyCartItems, !reflect.DeepEqual(prev.Cart.Items, next.Cart.Items), next.Cart.Items, false)
		write(KeyShippingAddress, prev.Cart.ShippingAddress != next.Cart.ShippingAddress, next.Cart.ShippingAddress, false)
		write(KeyPaymentMethod, prev.Cart.PaymentMethod != next.Cart.PaymentMethod, next.Cart.PaymentMethod, false)
		write(KeyUserInfo, !reflect.DeepEqual(prev.UserLogin.UserInfo, next.UserLogin.UserInfo), next.UserLogin.UserInfo, next.UserLogin.UserInfo == nil)
	})
}
