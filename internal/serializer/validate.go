package serializer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.NodeRole(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("command", func(fl validator.FieldLevel) bool {
		return domain.Command(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
		return domain.ChannelType(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("delay_unit", func(fl validator.FieldLevel) bool {
		return domain.DelayUnit(fl.Field().String()).Valid()
	})
}

// InvalidError carries every problem found in a document.
type InvalidError struct {
	Errs []error
}

func (e *InvalidError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sequence document has %d problem(s):", len(e.Errs))
	for _, err := range e.Errs {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *InvalidError) Unwrap() []error { return e.Errs }

// ValidateOrdered checks a document field by field and then structurally:
// unique refs, a single leading root, parents before children, ports that
// fit the parent's role and payloads that fit each step's command.
func ValidateOrdered(seq *OrderedSequence) []error {
	if seq == nil {
		return []error{errors.New("sequence is nil")}
	}
	var errs []error

	if err := validate.Struct(seq); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fieldPath(fe), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}
	if len(seq.Steps) == 0 {
		return errs
	}

	steps := make(map[string]*Step, len(seq.Steps))
	children := make(map[string]map[domain.Port]string)
	for i := range seq.Steps {
		st := &seq.Steps[i]
		label := fmt.Sprintf("steps[%d]", i)
		if st.Ref != "" {
			if _, dup := steps[st.Ref]; dup {
				errs = append(errs, fmt.Errorf("%s: duplicate ref %q", label, st.Ref))
			}
		}

		if i == 0 {
			if st.Role != domain.RoleRoot {
				errs = append(errs, fmt.Errorf("%s: first step must be the root, got %q", label, st.Role))
			}
			if st.ParentRef != "" || st.Port != "" {
				errs = append(errs, fmt.Errorf("%s: root cannot have a parent", label))
			}
		} else {
			if st.Role == domain.RoleRoot {
				errs = append(errs, fmt.Errorf("%s: only the first step may be the root", label))
			}
			errs = append(errs, checkParent(label, st, steps, children)...)
		}

		errs = append(errs, checkPayload(label, st)...)
		if st.Ref != "" {
			if _, dup := steps[st.Ref]; !dup {
				steps[st.Ref] = st
			}
		}
	}
	return errs
}

func checkParent(label string, st *Step, steps map[string]*Step, children map[string]map[domain.Port]string) []error {
	if st.ParentRef == "" {
		return []error{fmt.Errorf("%s: parent_ref is required", label)}
	}
	parent, ok := steps[st.ParentRef]
	if !ok {
		return []error{fmt.Errorf("%s: parent_ref %q does not name an earlier step", label, st.ParentRef)}
	}
	if !allowedPort(parent, st.Port, children[parent.Ref]) {
		return []error{fmt.Errorf("%s: port %q not allowed below %s step %q", label, st.Port, parent.Role, parent.Ref)}
	}
	if prev, used := children[parent.Ref][st.Port]; used {
		return []error{fmt.Errorf("%s: port %q of %q already taken by %q", label, st.Port, parent.Ref, prev)}
	}
	if children[parent.Ref] == nil {
		children[parent.Ref] = make(map[domain.Port]string)
	}
	children[parent.Ref][st.Port] = st.Ref
	return nil
}

func allowedPort(parent *Step, port domain.Port, taken map[domain.Port]string) bool {
	switch parent.Role {
	case domain.RoleSingleChild, domain.RoleDelay:
		return port == domain.PortBottom
	case domain.RoleBranching:
		return port == domain.PortLeft || port == domain.PortRight
	case domain.RoleRoot:
		if parent.Command == domain.CommandNone {
			return false
		}
		switch port {
		case domain.PortBottom:
			_, left := taken[domain.PortLeft]
			_, right := taken[domain.PortRight]
			return !left && !right
		case domain.PortLeft, domain.PortRight:
			_, single := taken[domain.PortBottom]
			return !single
		}
		return false
	case domain.RolePending, domain.RoleTerminal:
		return false
	}
	return false
}

func checkPayload(label string, st *Step) []error {
	var errs []error
	switch st.Role {
	case domain.RolePending:
		if st.Command != domain.CommandNone {
			errs = append(errs, fmt.Errorf("%s: pending step cannot run %q", label, st.Command))
		}
	case domain.RoleTerminal:
		if st.Command != domain.CommandEnd {
			errs = append(errs, fmt.Errorf("%s: terminal step must be %q", label, domain.CommandEnd))
		}
	case domain.RoleDelay:
		if st.Command != domain.CommandNone {
			errs = append(errs, fmt.Errorf("%s: delay step cannot run %q", label, st.Command))
		}
		if st.Delay == nil {
			errs = append(errs, fmt.Errorf("%s: delay step needs a delay", label))
		}
	case domain.RoleSingleChild, domain.RoleBranching:
		if !st.Command.IsAction() {
			errs = append(errs, fmt.Errorf("%s: %s step needs an action, got %q", label, st.Role, st.Command))
		}
	case domain.RoleRoot:
		if st.Command == domain.CommandEnd {
			errs = append(errs, fmt.Errorf("%s: root cannot be an end marker", label))
		}
	}
	if st.Delay != nil && st.Role != domain.RoleDelay {
		errs = append(errs, fmt.Errorf("%s: only delay steps carry a delay", label))
	}
	if st.Template != nil && st.Role == domain.RoleDelay {
		errs = append(errs, fmt.Errorf("%s: delay step cannot carry a template", label))
	}
	return errs
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}
