package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/lrs-backtest/internal/backtest"
	"github.com/yourusername/lrs-backtest/internal/models"
)

// backtestQuery is the raw query string of GET /api/backtest. Empty fields
// fall back to the configured defaults.
type backtestQuery struct {
	Start    string `query:"start" validate:"omitempty,datetime=2006-01-02"`
	End      string `query:"end" validate:"omitempty,datetime=2006-01-02"`
	MAPeriod string `query:"ma_period" validate:"omitempty,number"`
	Leverage string `query:"leverage" validate:"omitempty,numeric"`
}

func newQueryValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("query")
	})
	return v
}

func readBacktestQuery(r *http.Request) backtestQuery {
	values := r.URL.Query()
	get := func(key string) string {
		return strings.TrimSpace(values.Get(key))
	}
	return backtestQuery{
		Start:    get("start"),
		End:      get("end"),
		MAPeriod: get("ma_period"),
		Leverage: get("leverage"),
	}
}

// parseBacktestParams overlays the request's query on defaults. Range checks
// are left to Params.Validate so the CLI and the API share them.
func parseBacktestParams(r *http.Request, defaults backtest.Params, v *validator.Validate) (backtest.Params, error) {
	q := readBacktestQuery(r)
	if err := v.Struct(q); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return backtest.Params{}, queryError(validationErrors[0])
		}
		return backtest.Params{}, fmt.Errorf("validate query: %w", err)
	}

	params := defaults
	if q.Start != "" {
		start, err := time.Parse(models.DateLayout, q.Start)
		if err != nil {
			return backtest.Params{}, &models.InvalidParameterError{Param: "start", Reason: "must be a YYYY-MM-DD date"}
		}
		params.Start = start
	}
	if q.End != "" {
		end, err := time.Parse(models.DateLayout, q.End)
		if err != nil {
			return backtest.Params{}, &models.InvalidParameterError{Param: "end", Reason: "must be a YYYY-MM-DD date"}
		}
		params.End = end
	}
	if q.MAPeriod != "" {
		ma, err := strconv.Atoi(q.MAPeriod)
		if err != nil {
			return backtest.Params{}, &models.InvalidParameterError{Param: "ma_period", Reason: "must be a positive integer"}
		}
		params.MAPeriod = ma
	}
	if q.Leverage != "" {
		leverage, err := strconv.ParseFloat(q.Leverage, 64)
		if err != nil {
			return backtest.Params{}, &models.InvalidParameterError{Param: "leverage", Reason: "must be a number"}
		}
		params.Leverage = leverage
	}
	return params, nil
}

func queryError(fe validator.FieldError) *models.InvalidParameterError {
	reason := fmt.Sprintf("failed the '%s' check", fe.Tag())
	switch fe.Tag() {
	case "datetime":
		reason = "must be a YYYY-MM-DD date"
	case "number":
		reason = "must be a positive integer"
	case "numeric":
		reason = "must be a number"
	}
	return &models.InvalidParameterError{Param: fe.Field(), Reason: reason}
}
