package launch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/xformctl/internal/model"
)

var (
	ErrConfiguration = errors.New("launch: invalid configuration")
	ErrGraphLoad     = errors.New("launch: graph load failed")
	ErrModuleLoad    = errors.New("launch: module load failed")
	ErrExecution     = errors.New("launch: execution failed")
)

// ViolationCode identifies one configuration problem.
type ViolationCode string

const (
	ViolationNoModule        ViolationCode = "no_module"
	ViolationNoSchema        ViolationCode = "no_schema"
	ViolationNoInput         ViolationCode = "no_input"
	ViolationNoOutput        ViolationCode = "no_output"
	ViolationEmptyName       ViolationCode = "empty_name"
	ViolationDuplicateGraph  ViolationCode = "duplicate_graph"
	ViolationDuplicateSchema ViolationCode = "duplicate_schema"
	ViolationBinding         ViolationCode = "binding"
)

// Violation is one reason a builder cannot produce a Config.
type Violation struct {
	Code ViolationCode
	Name string
	Msg  string
}

func (v Violation) Error() string {
	if v.Name != "" {
		return fmt.Sprintf("%s: %s: %s", v.Code, v.Name, v.Msg)
	}
	return fmt.Sprintf("%s: %s", v.Code, v.Msg)
}

// ConfigurationError lists every violation found by Build.
type ConfigurationError struct {
	Violations []Violation
}

func (e *ConfigurationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return ErrConfiguration.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Error())
	}
	return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), strings.Join(parts, "; "))
}

// Cause returns the first violation.
func (e *ConfigurationError) Cause() Violation {
	if e == nil || len(e.Violations) == 0 {
		return Violation{}
	}
	return e.Violations[0]
}

// Has reports whether a violation with code is present.
func (e *ConfigurationError) Has(code ViolationCode) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// GraphLoadError reports a bound graph that could not be opened or handed
// to the engine.
type GraphLoadError struct {
	Name string
	Role model.Role
	Path string
	Err  error
}

func (e *GraphLoadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s graph %s (%s): %v", ErrGraphLoad.Error(), e.Role, e.Name, e.Path, e.Err)
}

func (e *GraphLoadError) Unwrap() []error { return []error{ErrGraphLoad, e.Err} }

// ModuleLoadError reports a module that is missing or rejected by the engine.
type ModuleLoadError struct {
	Module string
	Dir    string
	Err    error
}

func (e *ModuleLoadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s in %s: %v", ErrModuleLoad.Error(), e.Module, e.Dir, e.Err)
}

func (e *ModuleLoadError) Unwrap() []error { return []error{ErrModuleLoad, e.Err} }

// ExecutionError reports a failure inside the engine run.
type ExecutionError struct {
	Module string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %v", ErrExecution.Error(), e.Module, e.Err)
}

func (e *ExecutionError) Unwrap() []error { return []error{ErrExecution, e.Err} }
