package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DebtLoan       DebtType = "loan"
	DebtCreditCard DebtType = "credit_card"
	DebtMortgage   DebtType = "mortgage"
	DebtAuto       DebtType = "auto"
	DebtStudent    DebtType = "student"
	DebtOther      DebtType = "other"
)

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
	CategoryBoth    CategoryType = "both"
)

const (
	IncomePending   IncomeStatus = "pending"
	IncomeDeposited IncomeStatus = "deposited"
	IncomeCancelled IncomeStatus = "cancelled"
)

const (
	TxIncome   TransactionType = "income"
	TxExpense  TransactionType = "expense"
	TxTransfer TransactionType = "transfer"
)

const (
	GoalSavings    GoalType = "savings"
	GoalInvestment GoalType = "investment"
	GoalPurchase   GoalType = "purchase"
	GoalEmergency  GoalType = "emergency"
	GoalOther      GoalType = "other"
)

// DefaultCategoryColor is applied to categories created without a color.
const DefaultCategoryColor = "#2196F3"

type (
	DebtType        string
	CategoryType    string
	IncomeStatus    string
	TransactionType string
	GoalType        string

	Account struct {
		ID        int64           `json:"id"`
		OwnerID   string          `json:"-"`
		Currency  Currency        `json:"currency"`
		Name      string          `json:"account_name"`
		Number    string          `json:"account_number"`
		Balance   decimal.Decimal `json:"balance"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
	}

	Debt struct {
		ID             int64           `json:"id"`
		OwnerID        string          `json:"-"`
		Name           string          `json:"name"`
		Type           DebtType        `json:"debt_type"`
		Principal      decimal.Decimal `json:"principal_amount"`
		InterestRate   decimal.Decimal `json:"interest_rate"`
		TermMonths     int             `json:"term_months"`
		StartDate      Date            `json:"start_date"`
		CurrentBalance decimal.Decimal `json:"current_balance"`
		OpeningBalance decimal.Decimal `json:"opening_balance"`
		MonthlyPayment decimal.Decimal `json:"monthly_payment"`
		CreatedAt      time.Time       `json:"created_at"`
		UpdatedAt      time.Time       `json:"updated_at"`
	}

	DebtPayment struct {
		ID               int64           `json:"id"`
		OwnerID          string          `json:"-"`
		DebtID           int64           `json:"debt"`
		PaymentDate      Date            `json:"payment_date"`
		Amount           decimal.Decimal `json:"amount"`
		PrincipalPayment decimal.Decimal `json:"principal_payment"`
		InterestPayment  decimal.Decimal `json:"interest_payment"`
		RemainingBalance decimal.Decimal `json:"remaining_balance"`
		Notes            string          `json:"notes"`
		CreatedAt        time.Time       `json:"created_at"`
	}

	Category struct {
		ID          int64        `json:"id"`
		OwnerID     string       `json:"-"`
		Name        string       `json:"name"`
		Type        CategoryType `json:"category_type"`
		Icon        string       `json:"icon"`
		Color       string       `json:"color"`
		Description string       `json:"description"`
		Active      bool         `json:"is_active"`
		ParentID    *int64       `json:"parent_category"`
		CreatedAt   time.Time    `json:"created_at"`
		UpdatedAt   time.Time    `json:"updated_at"`
	}

	Expense struct {
		ID            int64           `json:"id"`
		OwnerID       string          `json:"-"`
		Description   string          `json:"description"`
		Amount        decimal.Decimal `json:"amount"`
		CategoryLabel string          `json:"category"`
		CategoryID    *int64          `json:"category_fk"`
		Date          Date            `json:"date"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}

	Income struct {
		ID             int64           `json:"id"`
		OwnerID        string          `json:"-"`
		Source         string          `json:"source"`
		Amount         decimal.Decimal `json:"amount"`
		Currency       Currency        `json:"currency"`
		Date           Date            `json:"date"`
		DepositTime    string          `json:"deposit_time,omitempty"`
		Frequency      string          `json:"frequency"`
		Status         IncomeStatus    `json:"status"`
		USAccountID    *int64          `json:"us_account"`
		KenyaAccountID *int64          `json:"kenya_account"`
		CreatedAt      time.Time       `json:"created_at"`
		UpdatedAt      time.Time       `json:"updated_at"`
	}

	Transaction struct {
		ID               int64            `json:"id"`
		OwnerID          string           `json:"-"`
		Type             TransactionType  `json:"transaction_type"`
		Amount           decimal.Decimal  `json:"amount"`
		Currency         Currency         `json:"currency"`
		Date             Date             `json:"date"`
		Description      string           `json:"description"`
		BudgetPercentage *decimal.Decimal `json:"budget_percentage"`
		USAccountID      *int64           `json:"us_account"`
		KenyaAccountID   *int64           `json:"kenya_account"`
		CreatedAt        time.Time        `json:"created_at"`
		UpdatedAt        time.Time        `json:"updated_at"`
	}

	Goal struct {
		ID            int64           `json:"id"`
		OwnerID       string          `json:"-"`
		Name          string          `json:"name"`
		Type          GoalType        `json:"goal_type"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		Deadline      Date            `json:"deadline"`
		Description   string          `json:"description"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}

	Project struct {
		ID          int64           `json:"id"`
		OwnerID     string          `json:"-"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Budget      decimal.Decimal `json:"budget"`
		BudgetUsed  decimal.Decimal `json:"budget_used"`
		StartDate   Date            `json:"start_date"`
		EndDate     *Date           `json:"end_date"`
		ParentID    *int64          `json:"parent_project"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}
)

var (
	validDebtTypes       = []DebtType{DebtLoan, DebtCreditCard, DebtMortgage, DebtAuto, DebtStudent, DebtOther}
	validCategoryTypes   = []CategoryType{CategoryExpense, CategoryIncome, CategoryBoth}
	validIncomeStatuses  = []IncomeStatus{IncomePending, IncomeDeposited, IncomeCancelled}
	validTxTypes         = []TransactionType{TxIncome, TxExpense, TxTransfer}
	validGoalTypes       = []GoalType{GoalSavings, GoalInvestment, GoalPurchase, GoalEmergency, GoalOther}
	validIncomeFrequency = []string{"once", "daily", "weekly", "biweekly", "monthly", "quarterly", "annually"}
)

func oneOf[T comparable](v T, valid []T) bool {
	for _, x := range valid {
		if v == x {
			return true
		}
	}
	return false
}

func requireText(field, v string, max int) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return Invalid(field, "this field is required")
	}
	if len(v) > max {
		return Invalid(field, "ensure this field has no more than "+strconv.Itoa(max)+" characters")
	}
	return nil
}

func requirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return Invalid(field, "must be greater than zero")
	}
	return nil
}

func requireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return Invalid(field, "must not be negative")
	}
	return nil
}

func (a Account) Validate() error {
	if !a.Currency.Valid() {
		return Invalid("currency", "must be USD or KES")
	}
	if err := requireText("account_name", a.Name, 100); err != nil {
		return err
	}
	return requireText("account_number", a.Number, 50)
}

func (d Debt) Validate() error {
	if err := requireText("name", d.Name, 200); err != nil {
		return err
	}
	if !oneOf(d.Type, validDebtTypes) {
		return Invalid("debt_type", "invalid debt type")
	}
	if err := requirePositive("principal_amount", d.Principal); err != nil {
		return err
	}
	if d.InterestRate.IsNegative() || d.InterestRate.GreaterThan(hundred) {
		return Invalid("interest_rate", "must be between 0 and 100")
	}
	if d.TermMonths <= 0 {
		return Invalid("term_months", "must be a positive number of months")
	}
	if d.StartDate.IsZero() {
		return Invalid("start_date", "this field is required")
	}
	return nil
}

func (p DebtPayment) Validate() error {
	if p.DebtID == 0 {
		return Invalid("debt", "this field is required")
	}
	if p.PaymentDate.IsZero() {
		return Invalid("payment_date", "this field is required")
	}
	return requirePositive("amount", p.Amount)
}

func (c Category) Validate() error {
	if err := requireText("name", c.Name, 100); err != nil {
		return err
	}
	if !oneOf(c.Type, validCategoryTypes) {
		return Invalid("category_type", "must be expense, income or both")
	}
	if c.ParentID != nil && *c.ParentID == c.ID && c.ID != 0 {
		return Invalid("parent_category", "a category cannot be its own parent")
	}
	return nil
}

// MatchesType reports whether the category is usable for the given type.
func (c Category) MatchesType(t CategoryType) bool {
	return c.Type == t || c.Type == CategoryBoth
}

func (e Expense) Validate() error {
	if err := requireText("description", e.Description, 255); err != nil {
		return err
	}
	if err := requirePositive("amount", e.Amount); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return Invalid("date", "this field is required")
	}
	return nil
}

func (i Income) Validate() error {
	if err := requireText("source", i.Source, 200); err != nil {
		return err
	}
	if err := requirePositive("amount", i.Amount); err != nil {
		return err
	}
	if !i.Currency.Valid() {
		return Invalid("currency", "must be USD or KES")
	}
	if i.Date.IsZero() {
		return Invalid("date", "this field is required")
	}
	if !oneOf(i.Frequency, validIncomeFrequency) {
		return Invalid("frequency", "invalid frequency")
	}
	if !oneOf(i.Status, validIncomeStatuses) {
		return Invalid("status", "invalid status")
	}
	return nil
}

func (t Transaction) Validate() error {
	if !oneOf(t.Type, validTxTypes) {
		return Invalid("transaction_type", "must be income, expense or transfer")
	}
	if err := requirePositive("amount", t.Amount); err != nil {
		return err
	}
	if !t.Currency.Valid() {
		return Invalid("currency", "must be USD or KES")
	}
	if t.Date.IsZero() {
		return Invalid("date", "this field is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return Invalid("description", "this field is required")
	}
	return nil
}

func (g Goal) Validate() error {
	if err := requireText("name", g.Name, 200); err != nil {
		return err
	}
	if !oneOf(g.Type, validGoalTypes) {
		return Invalid("goal_type", "invalid goal type")
	}
	if err := requireNonNegative("target_amount", g.TargetAmount); err != nil {
		return err
	}
	if err := requireNonNegative("current_amount", g.CurrentAmount); err != nil {
		return err
	}
	if g.Deadline.IsZero() {
		return Invalid("deadline", "this field is required")
	}
	return nil
}

// Progress is min(round(current/target*100, 2), 100); zero for a zero target.
func (g Goal) Progress() decimal.Decimal {
	p := Percentage(g.CurrentAmount, g.TargetAmount)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

func (p Project) Validate() error {
	if err := requireText("name", p.Name, 255); err != nil {
		return err
	}
	if err := requireNonNegative("budget", p.Budget); err != nil {
		return err
	}
	if err := requireNonNegative("budget_used", p.BudgetUsed); err != nil {
		return err
	}
	if p.StartDate.IsZero() {
		return Invalid("start_date", "this field is required")
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return Invalid("end_date", "end date must be after start date")
	}
	if p.ParentID != nil && p.ID != 0 && *p.ParentID == p.ID {
		return Invalid("parent_project", "a project cannot be its own parent")
	}
	return nil
}

// Progress is the share of the project's schedule that has elapsed, as a
// whole percentage. Projects without an end date report 0.
func (p Project) Progress(today Date) int {
	if p.EndDate == nil {
		return 0
	}
	switch {
	case today.Before(p.StartDate):
		return 0
	case today.After(*p.EndDate):
		return 100
	}
	total := p.EndDate.Sub(p.StartDate.Time).Hours() / 24
	if total <= 0 {
		return 100
	}
	elapsed := today.Sub(p.StartDate.Time).Hours() / 24
	return int(elapsed / total * 100)
}

// FullPath renders "Parent > Child" for a category with a parent.
func (c Category) FullPath(parent *Category) string {
	if parent == nil {
		return c.Name
	}
	return parent.Name + " > " + c.Name
}
