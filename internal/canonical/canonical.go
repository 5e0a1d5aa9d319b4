// Package canonical produces the deterministic byte encodings that intent
// tokens are signed over, plus SHA-256 digests of RFC 8785 JSON.
//
// Every field is written as a netstring ("<len>:<bytes>,") so no choice of
// parameter value can collide with a different field layout.
package canonical

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

const (
	actionTag   = "intent-action/v1"
	identityTag = "intent-identity/v1"

	tagString = "s"
	tagNumber = "n"
)

var (
	ErrEmptyName      = errors.New("action name required")
	ErrEmptyParamName = errors.New("parameter name required")
	ErrDuplicateParam = errors.New("duplicate parameter")
	ErrBadNumber      = errors.New("number must be finite")
	ErrBadKind        = errors.New("unsupported parameter kind")
)

// Build serializes an action. Logically equal actions produce identical
// bytes regardless of parameter order.
func Build(action models.ActionDescriptor) ([]byte, error) {
	name := models.NormalizeActionName(action.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	params := make([]models.Param, len(action.Params))
	for i, p := range action.Params {
		n := norm.NFC.String(strings.TrimSpace(p.Name))
		if n == "" {
			return nil, ErrEmptyParamName
		}
		params[i] = models.Param{Name: n, Value: p.Value}
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })

	var buf bytes.Buffer
	writeField(&buf, actionTag)
	writeField(&buf, norm.NFC.String(name))
	for i, p := range params {
		if i > 0 && params[i-1].Name == p.Name {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParam, p.Name)
		}
		tag, val, err := encodeValue(p.Value)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", p.Name, err)
		}
		writeField(&buf, p.Name)
		writeField(&buf, tag)
		writeField(&buf, val)
	}
	return buf.Bytes(), nil
}

// Identity serializes an identity context. The zero identity is valid.
func Identity(id models.IdentityContext) []byte {
	var buf bytes.Buffer
	writeField(&buf, identityTag)
	writeField(&buf, norm.NFC.String(id.UserID))
	writeField(&buf, norm.NFC.String(id.AgentID))
	writeField(&buf, norm.NFC.String(id.ContextID))
	return buf.Bytes()
}

// FormatNumber is the canonical decimal form of a number: shortest
// round-trip representation, no exponent, negative zero folded to zero.
func FormatNumber(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", ErrBadNumber
	}
	if f == 0 {
		return "0", nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func encodeValue(v models.Value) (tag, val string, err error) {
	switch v.Kind {
	case models.KindString:
		return tagString, norm.NFC.String(v.Str), nil
	case models.KindNumber:
		s, err := FormatNumber(v.Num)
		if err != nil {
			return "", "", err
		}
		return tagNumber, s, nil
	}
	return "", "", ErrBadKind
}

func writeField(buf *bytes.Buffer, s string) {
	buf.WriteString(strconv.Itoa(len(s)))
	buf.WriteByte(':')
	buf.WriteString(s)
	buf.WriteByte(',')
}
