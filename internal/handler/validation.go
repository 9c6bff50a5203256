package handler

import (
	"sync"

	"github.com/crisramb665/FundChain/internal/amount"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidations adds the "amount" tag to gin's validator: a
// non-negative decimal string.
func RegisterValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("amount", validAmount)
	})
}

func validAmount(fl validator.FieldLevel) bool {
	_, err := amount.ParseBaseUnits(fl.Field().String(), amount.MaxDecimals)
	return err == nil
}
