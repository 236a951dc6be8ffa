package visibility

// Evaluator decides whether a predicate holds for a field given the current
// form values. It backs both showIf and disabled rules.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// DependencyAnalyzer reports which value keys a rule reads. The form engine
// builds its revalidation graph from these.
type DependencyAnalyzer interface {
	Dependencies(rule string) ([]string, error)
}

// Context provides inputs to an Evaluator. Values is the form value map while
// Extras lets hosts inject context such as user roles or feature flags.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}
