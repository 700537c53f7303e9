package tipout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
	"github.com/tippool/backend/internal/domain/tipout"
	csvimport "github.com/tippool/backend/internal/infrastructure/import"
)

// ruleImportColumns are the columns a rule CSV must carry. cap_percent,
// effective_from, effective_to and enabled are optional.
var ruleImportColumns = []string{"name", "source_role", "recipient_role", "basis", "percent"}

const ruleImportDateFormat = "2006-01-02"

// RuleImportResult represents the outcome of a rule bulk import
type RuleImportResult struct {
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// RuleImportService loads tip-out rules from CSV files. Rows are validated
// first; rows that fail validation are reported and skipped while the valid
// remainder is imported.
type RuleImportService struct {
	ruleRepo tipout.TipOutRuleRepository
}

// NewRuleImportService creates a new RuleImportService
func NewRuleImportService(ruleRepo tipout.TipOutRuleRepository) *RuleImportService {
	return &RuleImportService{ruleRepo: ruleRepo}
}

// GetValidationRules returns the validation rules for rule import
func (s *RuleImportService) GetValidationRules() []csvimport.FieldRule {
	zero := decimal.Zero
	hundred := decimal.NewFromInt(100)
	return []csvimport.FieldRule{
		csvimport.Field("name").Required().String().MinLength(1).MaxLength(200).Unique().Build(),
		csvimport.Field("source_role").Required().String().MaxLength(100).Build(),
		csvimport.Field("recipient_role").Required().String().MaxLength(100).Build(),
		csvimport.Field("basis").Required().Custom(validateBasis).Build(),
		csvimport.Field("percent").Required().Decimal().MinValue(zero).MaxValue(hundred).Build(),
		csvimport.Field("cap_percent").Decimal().MinValue(zero).MaxValue(hundred).Build(),
		csvimport.Field("effective_from").Date().DateFormat(ruleImportDateFormat).Build(),
		csvimport.Field("effective_to").Date().DateFormat(ruleImportDateFormat).Build(),
		csvimport.Field("enabled").Bool().Build(),
	}
}

// validateBasis validates the basis field
func validateBasis(value string) error {
	if !tipout.BasisType(strings.ToUpper(value)).IsValid() {
		return fmt.Errorf("basis must be one of TOTAL_SALES, FOOD_SALES, BAR_SALES, NET_SALES, TIPS_EARNED")
	}
	return nil
}

// parseImportBool interprets the accepted boolean spellings
func parseImportBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

// ImportRules parses, validates and imports a rule CSV for a location
func (s *RuleImportService) ImportRules(ctx context.Context, locationID uuid.UUID, data []byte) (*RuleImportResult, error) {
	parser, err := csvimport.ParseFromBytes(data)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_FILE", err.Error())
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, shared.NewDomainError("INVALID_FILE", err.Error())
	}
	if missing := parser.ValidateHeaders(ruleImportColumns); len(missing) > 0 {
		return nil, shared.NewDomainError("MISSING_COLUMNS", "Missing required columns: "+strings.Join(missing, ", "))
	}

	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, shared.NewDomainError("INVALID_FILE", err.Error())
	}

	result := &RuleImportResult{TotalRows: len(rows)}

	validator := csvimport.NewFieldValidator(s.GetValidationRules(), 100)
	var validRows []*csvimport.Row
	for _, row := range rows {
		if validator.ValidateRow(row) {
			validRows = append(validRows, row)
		} else {
			result.ErrorRows++
		}
	}

	errors := csvimport.NewErrorCollection(100)
	for _, e := range validator.Errors().Errors() {
		errors.Add(e)
	}

	for _, row := range validRows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := s.importRow(ctx, locationID, row, result, errors); err != nil {
			return nil, err
		}
	}

	result.Errors = errors.Errors()
	result.IsTruncated = errors.IsTruncated()
	result.TotalErrors = errors.TotalCount()

	return result, nil
}

// importRow creates a single rule from a validated row
func (s *RuleImportService) importRow(
	ctx context.Context,
	locationID uuid.UUID,
	row *csvimport.Row,
	result *RuleImportResult,
	errors *csvimport.ErrorCollection,
) error {
	name := strings.TrimSpace(row.Get("name"))
	sourceRole := strings.TrimSpace(row.Get("source_role"))
	recipientRole := strings.TrimSpace(row.Get("recipient_role"))
	basis := tipout.BasisType(strings.ToUpper(strings.TrimSpace(row.Get("basis"))))

	percent, err := decimal.NewFromString(row.Get("percent"))
	if err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "percent", csvimport.ErrCodeImportInvalidType, "invalid decimal value"))
		result.ErrorRows++
		return nil
	}

	// Zero means the rule is effective immediately
	var effectiveFrom time.Time
	if v := row.Get("effective_from"); v != "" {
		effectiveFrom, err = time.Parse(ruleImportDateFormat, v)
		if err != nil {
			errors.Add(csvimport.NewRowError(row.LineNumber, "effective_from", csvimport.ErrCodeImportInvalidFormat, "invalid date value"))
			result.ErrorRows++
			return nil
		}
	}

	rule, err := tipout.NewTipOutRule(locationID, name, sourceRole, recipientRole, basis, percent, effectiveFrom)
	if err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, err.Error()))
		result.ErrorRows++
		return nil
	}

	if v := row.Get("cap_percent"); v != "" {
		cap, err := decimal.NewFromString(v)
		if err != nil {
			errors.Add(csvimport.NewRowError(row.LineNumber, "cap_percent", csvimport.ErrCodeImportInvalidType, "invalid decimal value"))
			result.ErrorRows++
			return nil
		}
		if _, err := rule.WithCap(cap); err != nil {
			errors.Add(csvimport.NewRowError(row.LineNumber, "cap_percent", csvimport.ErrCodeImportValidation, err.Error()))
			result.ErrorRows++
			return nil
		}
	}

	if v := row.Get("effective_to"); v != "" {
		to, err := time.Parse(ruleImportDateFormat, v)
		if err != nil {
			errors.Add(csvimport.NewRowError(row.LineNumber, "effective_to", csvimport.ErrCodeImportInvalidFormat, "invalid date value"))
			result.ErrorRows++
			return nil
		}
		if _, err := rule.WithEffectiveTo(to); err != nil {
			errors.Add(csvimport.NewRowError(row.LineNumber, "effective_to", csvimport.ErrCodeImportValidation, err.Error()))
			result.ErrorRows++
			return nil
		}
	}

	if v := row.Get("enabled"); v != "" && !parseImportBool(v) {
		rule.Disable()
	}

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		errors.Add(csvimport.NewRowError(row.LineNumber, "", csvimport.ErrCodeImportValidation, "failed to save rule: "+err.Error()))
		result.ErrorRows++
		return nil
	}

	result.ImportedRows++
	return nil
}
