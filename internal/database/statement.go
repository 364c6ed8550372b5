package database

import (
	"fmt"
	"time"
)

// Binder sets the positional parameters of a statement before it runs.
type Binder func(stmt *Statement) error

// NoBind is a Binder for statements without parameters.
func NoBind(*Statement) error { return nil }

// Args returns a Binder that binds args to positions 1..len(args).
func Args(args ...any) Binder {
	return func(stmt *Statement) error {
		stmt.Bind(args...)
		return nil
	}
}

// Statement is a prepared, not yet executed statement. Parameters are
// addressed by 1-based position, matching the order of ? placeholders.
type Statement struct {
	query string
	args  []any
	bound []bool
	err   error
}

func newStatement(query string) *Statement {
	return &Statement{query: query}
}

// Query returns the SQL text.
func (s *Statement) Query() string { return s.query }

// Set binds value to the parameter at index.
func (s *Statement) Set(index int, value any) {
	if index < 1 {
		if s.err == nil {
			s.err = fmt.Errorf("parameter index %d out of range: positions start at 1", index)
		}
		return
	}
	for len(s.args) < index {
		s.args = append(s.args, nil)
		s.bound = append(s.bound, false)
	}
	s.args[index-1] = value
	s.bound[index-1] = true
}

func (s *Statement) SetString(index int, v string) { s.Set(index, v) }
func (s *Statement) SetInt(index int, v int) { s.Set(index, int64(v)) }
func (s *Statement) SetInt64(index int, v int64) { s.Set(index, v) }
func (s *Statement) SetFloat64(index int, v float64) { s.Set(index, v) }
func (s *Statement) SetBool(index int, v bool) { s.Set(index, v) }
func (s *Statement) SetTime(index int, v time.Time) { s.Set(index, v) }
func (s *Statement) SetNull(index int) { s.Set(index, nil) }

// SetBytes binds a copy of v.
func (s *Statement) SetBytes(index int, v []byte) {
	if v == nil {
		s.Set(index, nil)
		return
	}
	s.Set(index, append([]byte(nil), v...))
}

// Bind sets args at positions 1..len(args).
func (s *Statement) Bind(args ...any) {
	for i, a := range args {
		s.Set(i+1, a)
	}
}

// ClearParameters drops every bound value.
func (s *Statement) ClearParameters() {
	s.args = nil
	s.bound = nil
	s.err = nil
}

// values returns the bound arguments in placeholder order. A gap in the
// bound positions is an error rather than an implicit NULL.
func (s *Statement) values() ([]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i, ok := range s.bound {
		if !ok {
			return nil, fmt.Errorf("parameter %d is not bound", i+1)
		}
	}
	return s.args, nil
}

// bindArgs runs bind against a fresh statement for query.
func bindArgs(query string, bind Binder) ([]any, error) {
	stmt := newStatement(query)
	if bind != nil {
		if err := bind(stmt); err != nil {
			return nil, fmt.Errorf("bind parameters: %w", err)
		}
	}
	args, err := stmt.values()
	if err != nil {
		return nil, fmt.Errorf("bind parameters: %w", err)
	}
	return args, nil
}
