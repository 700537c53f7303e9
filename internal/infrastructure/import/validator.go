package csvimport

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldType names the parse applied to a column before rule checks.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
	TypeDate    FieldType = "date"
	TypeEmail   FieldType = "email"
	TypeBool    FieldType = "bool"
	TypeUUID    FieldType = "uuid"
)

// FieldRule is the full set of checks applied to one CSV column.
type FieldRule struct {
	Column      string
	Type        FieldType
	Required    bool
	MinLength   int
	MaxLength   int
	MinValue    *decimal.Decimal
	MaxValue    *decimal.Decimal
	Pattern     *regexp.Regexp
	PatternDesc string
	DateFormat  string
	Unique      bool
	Reference   string // referenced lookup kind, e.g. "role" or "worker"
	CustomFunc  func(value string) error
}

// FieldRuleBuilder assembles a FieldRule through chained calls.
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for the named column. The type defaults to string and
// dates default to the 2006-01-02 layout.
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{
		rule: FieldRule{
			Column:     column,
			Type:       TypeString,
			DateFormat: "2006-01-02",
		},
	}
}

// Required rejects empty values for this column.
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

func (b *FieldRuleBuilder) String() *FieldRuleBuilder {
	b.rule.Type = TypeString
	return b
}

func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

func (b *FieldRuleBuilder) Date() *FieldRuleBuilder {
	b.rule.Type = TypeDate
	return b
}

// DateFormat overrides the layout used to parse TypeDate values.
func (b *FieldRuleBuilder) DateFormat(format string) *FieldRuleBuilder {
	b.rule.DateFormat = format
	return b
}

func (b *FieldRuleBuilder) Email() *FieldRuleBuilder {
	b.rule.Type = TypeEmail
	return b
}

func (b *FieldRuleBuilder) Bool() *FieldRuleBuilder {
	b.rule.Type = TypeBool
	return b
}

func (b *FieldRuleBuilder) UUID() *FieldRuleBuilder {
	b.rule.Type = TypeUUID
	return b
}

func (b *FieldRuleBuilder) MinLength(n int) *FieldRuleBuilder {
	b.rule.MinLength = n
	return b
}

func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Length sets the minimum and maximum length in one call.
func (b *FieldRuleBuilder) Length(min, max int) *FieldRuleBuilder {
	b.rule.MinLength = min
	b.rule.MaxLength = max
	return b
}

func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

func (b *FieldRuleBuilder) MaxValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MaxValue = &v
	return b
}

// Range sets the numeric bounds in one call.
func (b *FieldRuleBuilder) Range(min, max decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &min
	b.rule.MaxValue = &max
	return b
}

// Pattern requires the value to match the regex. The description appears in
// error messages.
func (b *FieldRuleBuilder) Pattern(pattern, description string) *FieldRuleBuilder {
	b.rule.Pattern = regexp.MustCompile(pattern)
	b.rule.PatternDesc = description
	return b
}

// Unique rejects values that repeat within the same file.
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

// Reference marks the column as a lookup against existing records.
func (b *FieldRuleBuilder) Reference(refType string) *FieldRuleBuilder {
	b.rule.Reference = refType
	return b
}

// Custom attaches an arbitrary check that runs after the built-in ones.
func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

// Build finalizes the rule.
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator applies a rule set row by row, accumulating errors and
// tracking in-file uniqueness.
type FieldValidator struct {
	rules       map[string]FieldRule
	uniqueCheck map[string]map[string]int // column -> value -> first row seen
	errors      *ErrorCollection
}

// NewFieldValidator builds a validator for the given rules, keeping at most
// maxErrors before reporting truncation.
func NewFieldValidator(rules []FieldRule, maxErrors int) *FieldValidator {
	ruleMap := make(map[string]FieldRule, len(rules))
	for _, r := range rules {
		ruleMap[r.Column] = r
	}
	return &FieldValidator{
		rules:       ruleMap,
		uniqueCheck: make(map[string]map[string]int),
		errors:      NewErrorCollection(maxErrors),
	}
}

// ValidateRow checks every ruled column of the row. It reports false when
// any check failed; the details land in Errors.
func (v *FieldValidator) ValidateRow(row *Row) bool {
	ok := true
	for column, rule := range v.rules {
		if !v.validateField(row, column, rule) {
			ok = false
		}
	}
	return ok
}

func (v *FieldValidator) validateField(row *Row, column string, rule FieldRule) bool {
	value := row.Get(column)

	if value == "" {
		if rule.Required {
			v.errors.AddRequiredError(row.LineNumber, column)
			return false
		}
		return true
	}

	if err := parseTyped(value, rule.Type, rule.DateFormat); err != nil {
		v.errors.AddTypeError(row.LineNumber, column, string(rule.Type), value)
		return false
	}

	ok := true

	if rule.MinLength > 0 && len(value) < rule.MinLength ||
		rule.MaxLength > 0 && len(value) > rule.MaxLength {
		v.errors.AddLengthError(row.LineNumber, column, rule.MinLength, rule.MaxLength)
		ok = false
	}

	if rule.Type == TypeInt || rule.Type == TypeDecimal {
		if err := checkRange(value, rule.MinValue, rule.MaxValue); err != nil {
			if rule.MinValue != nil && rule.MaxValue != nil {
				minFloat, _ := rule.MinValue.Float64()
				maxFloat, _ := rule.MaxValue.Float64()
				v.errors.AddRangeError(row.LineNumber, column, minFloat, maxFloat)
			}
			ok = false
		}
	}

	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		v.errors.AddPatternError(row.LineNumber, column, rule.PatternDesc, value)
		ok = false
	}

	if rule.Unique && !v.checkUnique(row.LineNumber, column, value) {
		ok = false
	}

	if rule.CustomFunc != nil {
		if err := rule.CustomFunc(value); err != nil {
			v.errors.AddValidationError(row.LineNumber, column, ErrCodeImportValidation, err.Error())
			ok = false
		}
	}

	return ok
}

func (v *FieldValidator) checkUnique(line int, column, value string) bool {
	if v.uniqueCheck[column] == nil {
		v.uniqueCheck[column] = make(map[string]int)
	}
	if firstRow, exists := v.uniqueCheck[column][value]; exists {
		v.errors.Add(NewRowErrorWithValue(line, column, ErrCodeImportDuplicateInFile,
			fmt.Sprintf("duplicate value '%s' (first seen in row %d)", value, firstRow), value))
		return false
	}
	v.uniqueCheck[column][value] = line
	return true
}

func parseTyped(value string, fieldType FieldType, dateFormat string) error {
	switch fieldType {
	case TypeInt:
		_, err := strconv.ParseInt(value, 10, 64)
		return err
	case TypeDecimal:
		_, err := decimal.NewFromString(value)
		return err
	case TypeDate:
		_, err := time.Parse(dateFormat, value)
		return err
	case TypeEmail:
		_, err := mail.ParseAddress(value)
		return err
	case TypeBool:
		switch strings.ToLower(value) {
		case "true", "false", "1", "0", "yes", "no", "y", "n":
			return nil
		}
		return fmt.Errorf("invalid boolean value: %s", value)
	case TypeUUID:
		return validateUUID(value)
	}
	return nil
}

// validateUUID accepts only the canonical 8-4-4-4-12 form. uuid.Parse alone
// would also accept dashless and urn-prefixed forms.
func validateUUID(s string) error {
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return fmt.Errorf("invalid UUID format")
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("invalid UUID: %w", err)
	}
	return nil
}

func checkRange(value string, min, max *decimal.Decimal) error {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return err
	}
	if min != nil && d.LessThan(*min) {
		return fmt.Errorf("value %s is less than minimum %s", value, min.String())
	}
	if max != nil && d.GreaterThan(*max) {
		return fmt.Errorf("value %s is greater than maximum %s", value, max.String())
	}
	return nil
}

// Errors returns the accumulated row errors.
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.errors
}

// Reset clears errors and uniqueness state so the validator can run another
// file.
func (v *FieldValidator) Reset() {
	v.uniqueCheck = make(map[string]map[string]int)
	v.errors.Clear()
}

// ReferenceValidator checks column values against existing records through a
// lookup callback, caching results per reference kind.
type ReferenceValidator struct {
	cache      map[string]map[string]bool
	lookupFunc func(refType, value string) (bool, error)
	errors     *ErrorCollection
}

func NewReferenceValidator(lookupFunc func(refType, value string) (bool, error), maxErrors int) *ReferenceValidator {
	return &ReferenceValidator{
		cache:      make(map[string]map[string]bool),
		lookupFunc: lookupFunc,
		errors:     NewErrorCollection(maxErrors),
	}
}

// PreloadReferences resolves a batch of values up front so row validation
// stays off the database.
func (v *ReferenceValidator) PreloadReferences(refType string, values []string) error {
	if v.cache[refType] == nil {
		v.cache[refType] = make(map[string]bool)
	}
	for _, value := range values {
		exists, err := v.lookupFunc(refType, value)
		if err != nil {
			return err
		}
		v.cache[refType][value] = exists
	}
	return nil
}

// ValidateReference checks one value, consulting the cache before the lookup.
// Empty values pass; required-ness is the FieldValidator's job.
func (v *ReferenceValidator) ValidateReference(row int, column, refType, value string) bool {
	if value == "" {
		return true
	}

	if cached, ok := v.cache[refType][value]; ok {
		if !cached {
			v.errors.AddReferenceError(row, column, value, refType)
			return false
		}
		return true
	}

	exists, err := v.lookupFunc(refType, value)
	if err != nil {
		v.errors.AddValidationError(row, column, ErrCodeImportValidation,
			fmt.Sprintf("error checking %s reference: %v", refType, err))
		return false
	}

	if v.cache[refType] == nil {
		v.cache[refType] = make(map[string]bool)
	}
	v.cache[refType][value] = exists

	if !exists {
		v.errors.AddReferenceError(row, column, value, refType)
		return false
	}
	return true
}

// Errors returns the accumulated reference errors.
func (v *ReferenceValidator) Errors() *ErrorCollection {
	return v.errors
}

// Reset drops the cache and errors.
func (v *ReferenceValidator) Reset() {
	v.cache = make(map[string]map[string]bool)
	v.errors.Clear()
}

// UniquenessValidator checks values against records already stored, through
// a lookup callback.
type UniquenessValidator struct {
	lookupFunc func(entityType, field, value string) (bool, error)
	errors     *ErrorCollection
}

func NewUniquenessValidator(lookupFunc func(entityType, field, value string) (bool, error), maxErrors int) *UniquenessValidator {
	return &UniquenessValidator{
		lookupFunc: lookupFunc,
		errors:     NewErrorCollection(maxErrors),
	}
}

// ValidateUnique reports false when the value already exists in storage.
func (v *UniquenessValidator) ValidateUnique(row int, column, entityType, value string) bool {
	if value == "" {
		return true
	}

	exists, err := v.lookupFunc(entityType, column, value)
	if err != nil {
		v.errors.AddValidationError(row, column, ErrCodeImportValidation,
			fmt.Sprintf("error checking uniqueness: %v", err))
		return false
	}
	if exists {
		v.errors.AddDuplicateError(row, column, value, true)
		return false
	}
	return true
}

// Errors returns the accumulated uniqueness errors.
func (v *UniquenessValidator) Errors() *ErrorCollection {
	return v.errors
}
