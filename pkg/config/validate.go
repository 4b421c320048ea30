package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/table"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func initValidator() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	if err := vld.RegisterValidation("nonnegative_amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && !d.IsNegative()
	}); err != nil {
		return nil, fmt.Errorf("register nonnegative_amount: %w", err)
	}

	if err := vld.RegisterValidation("encoding", func(fl validator.FieldLevel) bool {
		_, err := table.Decoder(fl.Field().String())
		return err == nil
	}); err != nil {
		return nil, fmt.Errorf("register encoding: %w", err)
	}

	return vld, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	if errValidate != nil {
		return errValidate
	}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed '%s' check", domain.ErrConfigInvalid, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", domain.ErrConfigInvalid, err)
	}

	red, _ := decimal.NewFromString(c.Accumulation.RedPenal)
	yellow, _ := decimal.NewFromString(c.Accumulation.YellowPenal)
	if yellow.GreaterThan(red) {
		return fmt.Errorf("%w: accumulation.yellow_penal exceeds red_penal", domain.ErrConfigInvalid)
	}
	return nil
}
