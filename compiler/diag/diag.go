// Package diag defines the error taxonomy shared by every compilation
// phase. Errors are plain values that accumulate in a List; the pipeline
// keeps going across recoverable failures so a single run surfaces as
// many problems as possible.
package diag

import (
	"fmt"
	"strings"
)

// Kind identifies a category of compilation error. The numeric value is
// stable and doubles as the printed error code (E0001, E0002, ...).
type Kind int

const (
	CircularDependancy Kind = iota + 1
	ParentObjectDoesNotExist
	CustomTypeNotDefined
	TypeNotResolved
	SnippetNotFound
	DuplicateFieldNames
	CannotCreateContext
	FunctionInvalidSyntax
	TypeNotSupported
	CannotRead
	CannotWrite
	SnippetNotClosed
	UnknownSnippet
	VariableNotInScope
	InvalidVariableModifier
	UnknownLink
	UnknownObject
	QueryArgInvalidSyntax
	QueryInvalidSyntax
	InvalidSuper
	FieldNotOnSuper
	InvalidJoin
	FieldNotOnJoin
	SyntaxError
	ProcessExecutionFailed
	PathNotValid
	ParseIncomplete
	FieldNotFound
	UnknownError
)

// Code returns the stable printable code for the kind, e.g. "E0003".
func (k Kind) Code() string {
	return fmt.Sprintf("E%04d", int(k))
}

func (k Kind) message() string {
	switch k {
	case CircularDependancy:
		return "This definition creates a circular dependancy with:"
	case ParentObjectDoesNotExist:
		return "Parent object couldn't be found:"
	case CustomTypeNotDefined:
		return "The custom type cannot be resolved:"
	case TypeNotResolved:
		return "This type couldn't be resolved."
	case SnippetNotFound:
		return "Expected to use snippet, but it couldn't be found:"
	case DuplicateFieldNames:
		return "A field already exists with this name."
	case CannotCreateContext:
		return "Cannot create a context:"
	case FunctionInvalidSyntax:
		return "Function syntax is not valid:"
	case TypeNotSupported:
		return "Type is not allowed:"
	case CannotRead:
		return "Cannot read the file:"
	case CannotWrite:
		return "Cannot write the file:"
	case SnippetNotClosed:
		return "Block was not closed:"
	case UnknownSnippet:
		return "Specified snippet does not exist:"
	case VariableNotInScope:
		return "Variable was not found in scope:"
	case InvalidVariableModifier:
		return "Unknown variable modifier specified:"
	case UnknownLink:
		return "Requested import but no link was defined for"
	case UnknownObject:
		return "Attempted to resolve this dependancy but the object couldn't be found:"
	case QueryArgInvalidSyntax:
		return "Invalid query argument syntax."
	case QueryInvalidSyntax:
		return "Invalid query syntax."
	case InvalidSuper:
		return "Cannot use super without an inheritance."
	case FieldNotOnSuper:
		return "Field does not exist in this super."
	case InvalidJoin:
		return "Joined entity not found."
	case FieldNotOnJoin:
		return "Field does not exist in this join."
	case SyntaxError:
		return "Error when parsing"
	case ProcessExecutionFailed:
		return "The requested process did not run successfully:"
	case PathNotValid:
		return "The path could not be used:"
	case ParseIncomplete:
		return "Input ended before the declaration was complete:"
	case FieldNotFound:
		return "Field does not exist on the referenced object:"
	default:
		return "An unknown error occured."
	}
}

// Error is a single diagnostic. Profile names the output being rendered
// (empty outside rendering), Scope names the object, field or file the
// error belongs to, and Stack carries nested context such as snippet
// expansion frames.
type Error struct {
	Kind    Kind
	Detail  string
	Profile string
	Scope   string
	Stack   []string
}

// New creates a diagnostic with no scope context.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf creates a diagnostic with a formatted detail message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// InScope returns a copy of the error scoped to the given location,
// typically "Object" or "Object.field".
func (e *Error) InScope(scope string) *Error {
	dup := *e
	dup.Scope = scope
	return &dup
}

// InProfile returns a copy of the error attributed to an output profile.
func (e *Error) InProfile(profile string) *Error {
	dup := *e
	dup.Profile = profile
	return &dup
}

// Push appends a context frame to the error's stack trace.
func (e *Error) Push(frame string) *Error {
	e.Stack = append(e.Stack, frame)
	return e
}

// Error implements the error interface. The format is
// "[E####] (profile → scope) message detail" with the parenthesised part
// omitted when no context is known.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Kind.Code())
	b.WriteString("]")
	switch {
	case e.Profile != "" && e.Scope != "":
		fmt.Fprintf(&b, " (%s → %s)", e.Profile, e.Scope)
	case e.Profile != "":
		fmt.Fprintf(&b, " (%s)", e.Profile)
	case e.Scope != "":
		fmt.Fprintf(&b, " (%s)", e.Scope)
	}
	b.WriteString(" ")
	b.WriteString(e.Kind.message())
	if e.Detail != "" {
		b.WriteString(" ")
		b.WriteString(e.Detail)
	}
	if len(e.Stack) > 0 {
		b.WriteString("\n\n--- Context: ---")
		for _, frame := range e.Stack {
			b.WriteString("\n\t- ")
			b.WriteString(frame)
		}
	}
	return b.String()
}

// List accumulates diagnostics across passes. The zero value is ready to
// use.
type List struct {
	errs []*Error
}

// Add appends diagnostics to the list, ignoring nils.
func (l *List) Add(errs ...*Error) {
	for _, e := range errs {
		if e != nil {
			l.errs = append(l.errs, e)
		}
	}
}

// Merge appends every diagnostic from another list.
func (l *List) Merge(other *List) {
	if other != nil {
		l.errs = append(l.errs, other.errs...)
	}
}

// Len reports the number of accumulated diagnostics.
func (l *List) Len() int { return len(l.errs) }

// HasErrors reports whether any diagnostic was recorded.
func (l *List) HasErrors() bool { return len(l.errs) > 0 }

// Errors returns the accumulated diagnostics in insertion order.
func (l *List) Errors() []*Error { return l.errs }

// Kinds returns the kind of every accumulated diagnostic, in order.
// Mostly a test convenience.
func (l *List) Kinds() []Kind {
	kinds := make([]Kind, len(l.errs))
	for i, e := range l.errs {
		kinds[i] = e.Kind
	}
	return kinds
}

// Has reports whether the list holds a diagnostic of the given kind.
func (l *List) Has(kind Kind) bool {
	for _, e := range l.errs {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
