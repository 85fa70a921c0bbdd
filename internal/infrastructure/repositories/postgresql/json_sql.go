package postgresql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/folivafy/folivafy/internal/domain/search"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// jsonFieldExpr returns the SQL expression extracting a (possibly dotted)
// path out of the document body as text. Path segments are validated before
// being inlined; there is no way to bind identifiers inside a json path.
func (s *Store) jsonFieldExpr(field string) (string, error) {
	segments := strings.Split(field, ".")
	for _, seg := range segments {
		if !fieldNamePattern.MatchString(seg) {
			return "", fmt.Errorf("invalid field name %q", field)
		}
	}
	if s.postgres {
		if len(segments) == 1 {
			return fmt.Sprintf("f->>'%s'", segments[0]), nil
		}
		return fmt.Sprintf("f#>>'{%s}'", strings.Join(segments, ",")), nil
	}
	return fmt.Sprintf("json_extract(f, '$.%s')", strings.Join(segments, ".")), nil
}

// filterArg prepares a filter value for comparison against the extracted
// field. Postgres json operators yield text, so values are stringified
// there; sqlite's json_extract keeps the native type.
func (s *Store) filterArg(value interface{}) interface{} {
	if !s.postgres {
		return value
	}
	return stringifyJSONValue(value)
}

func stringifyJSONValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// lowerFilter translates a filter tree into one SQL condition with bind
// arguments.
func (s *Store) lowerFilter(f search.Filter) (string, []interface{}, error) {
	if err := f.Validate(); err != nil {
		return "", nil, err
	}
	if f.IsGroup() {
		connector := " OR "
		if f.IsConjunction() {
			connector = " AND "
		}
		parts := make([]string, 0, len(f.Children()))
		var args []interface{}
		for _, child := range f.Children() {
			sql, childArgs, err := s.lowerFilter(child)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			args = append(args, childArgs...)
		}
		return "(" + strings.Join(parts, connector) + ")", args, nil
	}

	expr, err := s.jsonFieldExpr(f.Field())
	if err != nil {
		return "", nil, err
	}

	switch f.Op() {
	case search.OpEqual:
		return expr + " = ?", []interface{}{s.filterArg(f.Value())}, nil
	case search.OpNotEqual:
		return expr + " <> ?", []interface{}{s.filterArg(f.Value())}, nil
	case search.OpLessThan:
		return expr + " < ?", []interface{}{s.filterArg(f.Value())}, nil
	case search.OpLessEqual:
		return expr + " <= ?", []interface{}{s.filterArg(f.Value())}, nil
	case search.OpGreaterThan:
		return expr + " > ?", []interface{}{s.filterArg(f.Value())}, nil
	case search.OpGreaterEqual:
		return expr + " >= ?", []interface{}{s.filterArg(f.Value())}, nil
	case search.OpStartsWith:
		pattern := escapeLike(stringifyJSONValue(f.Value())) + "%"
		return expr + ` LIKE ? ESCAPE '\'`, []interface{}{pattern}, nil
	case search.OpContainsText:
		pattern := "%" + escapeLike(strings.ToLower(stringifyJSONValue(f.Value()))) + "%"
		return "LOWER(" + expr + `) LIKE ? ESCAPE '\'`, []interface{}{pattern}, nil
	case search.OpIn:
		values := f.Value().([]interface{})
		args := make([]interface{}, 0, len(values))
		for _, v := range values {
			args = append(args, s.filterArg(v))
		}
		return expr + " IN ?", []interface{}{args}, nil
	case search.OpNull:
		return expr + " IS NULL", nil, nil
	case search.OpNotNull:
		return expr + " IS NOT NULL", nil, nil
	default:
		return "", nil, fmt.Errorf("unknown filter operator %q", f.Op())
	}
}

// parseSortExpr turns one "name[.name]*[+-]" token into an ORDER BY term.
func (s *Store) parseSortExpr(token string) (string, error) {
	if len(token) < 2 {
		return "", fmt.Errorf("invalid sort token %q", token)
	}
	direction := "ASC"
	switch token[len(token)-1] {
	case '+':
	case '-':
		direction = "DESC"
	default:
		return "", fmt.Errorf("sort token %q must end in + or -", token)
	}
	expr, err := s.jsonFieldExpr(token[:len(token)-1])
	if err != nil {
		return "", err
	}
	return expr + " " + direction, nil
}

// orderClause builds the full ORDER BY expression for a listing. Without a
// caller sort the page is ordered by the created field, tie-broken by id.
func (s *Store) orderClause(sort string) (string, error) {
	if sort == "" {
		createdExpr, err := s.jsonFieldExpr("created")
		if err != nil {
			return "", err
		}
		return createdExpr + " ASC, id ASC", nil
	}
	tokens := strings.Split(sort, ",")
	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		term, err := s.parseSortExpr(token)
		if err != nil {
			return "", err
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, ", "), nil
}
