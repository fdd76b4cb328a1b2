package strategyconfig

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/aegis/pit/internal/s2_signals"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// 에러 경로를 YAML 키 이름으로 표시
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every violation of a spec
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%d strategy violation(s): %s", len(e), strings.Join(msgs, "; "))
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validate checks struct rules and cross-field constraints.
// All violations are returned together as ValidationErrors.
func Validate(spec *Spec) error {
	var errs ValidationErrors

	if err := validate.Struct(spec); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{Field: fieldPath(fe), Message: ruleMessage(fe)})
		}
	}

	errs = append(errs, crossFieldErrors(spec)...)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func crossFieldErrors(spec *Spec) ValidationErrors {
	var errs ValidationErrors

	// === Factors ===
	ids := make(map[string]bool, len(spec.Factors))
	for i, f := range spec.Factors {
		field := fmt.Sprintf("factors[%d]", i)
		if f.ID != "" && ids[f.ID] {
			errs = append(errs, ValidationError{field + ".id", fmt.Sprintf("duplicate factor id %q", f.ID)})
		}
		ids[f.ID] = true

		// formula 생략 시 팩터 id가 컬럼명 (id: roe → ROE)
		if formula := cmp.Or(f.Formula, f.ID); f.Type == "ratio" && !s2_signals.SupportedFormula(formula) {
			errs = append(errs, ValidationError{field + ".formula", fmt.Sprintf("unsupported ratio formula %q", formula)})
		}
		if len(f.Winsorize) == 2 && f.Winsorize[0] >= f.Winsorize[1] {
			errs = append(errs, ValidationError{field + ".winsorize", "lower bound must be < upper bound"})
		}
	}

	// === Signal ===
	// 가중치 키는 정의된 팩터여야 함
	keys := make([]string, 0, len(spec.Signal.Weights))
	for k := range spec.Signal.Weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !ids[k] {
			errs = append(errs, ValidationError{fmt.Sprintf("signal.weights[%s]", k), "not in factors"})
		}
		if spec.Signal.Method == "rank_product" && spec.Signal.Weights[k] < 0 {
			errs = append(errs, ValidationError{fmt.Sprintf("signal.weights[%s]", k), "must be >= 0 for rank_product"})
		}
	}

	// === Backtest ===
	if spec.Backtest.Start != "" && spec.Backtest.End != "" {
		start, errStart := time.Parse(time.DateOnly, spec.Backtest.Start)
		end, errEnd := time.Parse(time.DateOnly, spec.Backtest.End)
		if errStart == nil && errEnd == nil && end.Before(start) {
			errs = append(errs, ValidationError{"backtest", "start must be on or before end"})
		}
	}

	return errs
}

// Warn checks recommended constraints (non-fatal)
func Warn(spec *Spec) []Warning {
	var warnings []Warning

	constraints := spec.Constraints()

	// 종목 수 × 최대 비중 < 1 → 비례 축소로 대체
	if float64(constraints.N)*constraints.MaxWeight < 1 {
		warnings = append(warnings, Warning{
			Code:    "INFEASIBLE_CAPS",
			Message: fmt.Sprintf("n=%d × max_weight=%.2f < 1: weights will be scaled proportionally", constraints.N, constraints.MaxWeight),
		})
	}

	if spec.CostModel.FeeBps+spec.CostModel.SlippageBps == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_COST",
			Message: "fee_bps + slippage_bps = 0: backtest ignores trading costs",
		})
	}

	for _, f := range spec.Factors {
		if spec.Signal.Weights[f.ID] == 0 {
			warnings = append(warnings, Warning{
				Code:    "UNWEIGHTED_FACTOR",
				Message: fmt.Sprintf("factor %q has no signal weight and does not affect the composite", f.ID),
			})
		}
	}

	// 과도한 회전율 경고
	if constraints.MaxTurnover > 1 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_TURNOVER",
			Message: "max_turnover > 1: more than half of the book may be replaced every rebalance",
		})
	}
	if constraints.MaxTurnover == 0 {
		warnings = append(warnings, Warning{
			Code:    "FROZEN_BOOK",
			Message: "max_turnover = 0: weights never change after the first rebalance",
		})
	}

	return warnings
}

// fieldPath drops the root struct name: "Spec.portfolio.n" → "portfolio.n"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("must have at least %s item(s)", fe.Param())
	case "len":
		return fmt.Sprintf("must have exactly %s values", fe.Param())
	case "gt":
		return fmt.Sprintf("must be > %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a date in %s format", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
