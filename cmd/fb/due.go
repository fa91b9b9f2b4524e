package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/focusboard/focusboard/internal/board/schema"
)

var dueParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDue turns a due date given as YYYY-MM-DD or in plain English
// ("tomorrow", "next friday") into a calendar date. "none" clears it.
func parseDue(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "", "none", "-":
		return "", nil
	}
	if d, err := time.Parse(schema.DateLayout, input); err == nil {
		return d.Format(schema.DateLayout), nil
	}
	r, err := dueParser.Parse(input, now)
	if err != nil {
		return "", fmt.Errorf("invalid due date %q: %w", input, err)
	}
	if r == nil {
		return "", fmt.Errorf("invalid due date %q: use YYYY-MM-DD or a phrase like \"next friday\"", input)
	}
	return r.Time.Format(schema.DateLayout), nil
}
