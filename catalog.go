package uow

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// Step is a named, reusable action/rollback pair.
type Step struct {
	Name     string
	Action   ActionFunc
	Rollback RollbackFunc
}

// Catalog holds steps that are shared across many units of work.
//
// Services usually know their compensating actions up front. Registering them
// once in a catalog lets every request build its own Builder from names
// rather than closures. A Catalog is safe for concurrent use.
type Catalog struct {
	steps *xsync.MapOf[string, Step]
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		steps: xsync.NewMapOf[string, Step](),
	}
}

// Register adds a step to the catalog.
func (c *Catalog) Register(step Step) error {
	if step.Action == nil {
		return fmt.Errorf("step %q: %w", step.Name, ErrNilAction)
	}
	if _, loaded := c.steps.LoadOrStore(step.Name, step); loaded {
		return fmt.Errorf("step %q: %w", step.Name, ErrDuplicateStep)
	}
	return nil
}

// Get retrieves a step by name.
func (c *Catalog) Get(name string) (Step, error) {
	step, ok := c.steps.Load(name)
	if !ok {
		return Step{}, fmt.Errorf("step %q: %w", name, ErrStepNotFound)
	}
	return step, nil
}

// Unit builds a fresh Waiting unit for the named step. The unit is named
// after the step unless opts override it.
func (c *Catalog) Unit(name string, opts ...UnitOption) (*Unit, error) {
	step, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	return NewUnit(step.Action, step.Rollback, append([]UnitOption{Named(step.Name)}, opts...)...), nil
}

// Len returns the number of registered steps.
func (c *Catalog) Len() int {
	return c.steps.Size()
}
