package taskpool

import (
	"fmt"
	"strconv"
)

// Count is the number of tasks a collection or a share covers. It is either
// a bounded number of tasks or "all remaining pending tasks". The zero value
// is Limit(0).
type Count struct {
	n   int
	all bool
}

// All returns the unbounded Count.
func All() Count { return Count{all: true} }

// Limit returns a Count bounded to n tasks. It panics if n is negative;
// use ParseCount for untrusted input.
func Limit(n int) Count {
	if n < 0 {
		panic(fmt.Sprintf("taskpool: negative limit %d", n))
	}
	return Count{n: n}
}

// ParseCount converts the wire form of a count: -1 means all pending tasks,
// any other non-negative value is a bound.
func ParseCount(n int) (Count, error) {
	switch {
	case n == -1:
		return All(), nil
	case n >= 0:
		return Count{n: n}, nil
	default:
		return Count{}, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
}

// ParseCountString is ParseCount for command-line arguments.
func ParseCountString(s string) (Count, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return Count{}, fmt.Errorf("%w: %q", ErrInvalidCount, s)
	}
	return ParseCount(n)
}

// Unbounded reports whether c covers all pending tasks.
func (c Count) Unbounded() bool { return c.all }

// N returns the bound. It is meaningless when c is unbounded.
func (c Count) N() int { return c.n }

// IsZero reports whether c is a bound of zero tasks.
func (c Count) IsZero() bool { return !c.all && c.n == 0 }

// Int returns the wire form of c: -1 when unbounded, the bound otherwise.
func (c Count) Int() int {
	if c.all {
		return -1
	}
	return c.n
}

// String implements fmt.Stringer.
func (c Count) String() string {
	if c.all {
		return "all"
	}
	return strconv.Itoa(c.n)
}

// MarshalJSON encodes c in its wire form.
func (c Count) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(c.Int()), 10), nil
}

// UnmarshalJSON decodes the wire form of a count.
func (c *Count) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCount, data)
	}
	parsed, err := ParseCount(n)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
