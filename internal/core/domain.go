// Package core holds the cashbook domain: money and dates, transactions,
// categories, reminders, budgets, accounts and notifications, with the
// validation rules shared by storage, services and the HTTP layer.
package core

import (
	"encoding/json"
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"

	KindIncome  CategoryKind = "income"
	KindExpense CategoryKind = "expense"
	KindBoth    CategoryKind = "both"

	Payment    ReminderKind = "payment"
	Collection ReminderKind = "collection"

	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

const (
	maxDescription = 200
	maxName        = 60
	maxTags        = 10
	maxTagLength   = 32
	maxNotifyDays  = 30
	DateLayout     = "2006-01-02"
)

type (
	TxType       string
	CategoryKind string
	ReminderKind string
	Role         string

	// Date is a calendar day stored as UTC midnight.
	Date struct {
		time.Time
	}

	Category struct {
		ID     int64        `json:"id"`
		UserID int64        `json:"user_id,omitempty"` // 0 for system categories
		Name   string       `json:"name"`
		Kind   CategoryKind `json:"kind"`
		Icon   string       `json:"icon,omitempty"`
		Color  string       `json:"color,omitempty"`
	}

	Transaction struct {
		ID          int64     `json:"id"`
		UserID      int64     `json:"-"`
		Type        TxType    `json:"type"`
		Amount      Money     `json:"amount"`
		CategoryID  int64     `json:"category_id"`
		Date        Date      `json:"date"`
		Description string    `json:"description"`
		Tags        []string  `json:"tags"`
		ReminderID  int64     `json:"reminder_id,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	Reminder struct {
		ID                int64        `json:"id"`
		UserID            int64        `json:"-"`
		Kind              ReminderKind `json:"kind"`
		Title             string       `json:"title"`
		Amount            Money        `json:"amount"`
		CategoryID        int64        `json:"category_id"`
		DueDate           Date         `json:"due_date"`
		Repeat            Repeat       `json:"repeat"`
		NotifyDaysBefore  int          `json:"notify_days_before"`
		Completed         bool         `json:"completed"`
		CompletedAt       *time.Time   `json:"completed_at,omitempty"`
		LastTransactionID int64        `json:"last_transaction_id,omitempty"`
		CreatedAt         time.Time    `json:"created_at"`
	}

	Budget struct {
		ID           int64  `json:"id"`
		UserID       int64  `json:"-"`
		CategoryID   int64  `json:"category_id"`
		Limit        Money  `json:"limit"`
		Period       Period `json:"period"`
		AlertPercent int    `json:"alert_percent"`
	}

	BudgetStatus struct {
		Budget    Budget `json:"budget"`
		From      Date   `json:"from"`
		To        Date   `json:"to"`
		Spent     Money  `json:"spent"`
		Remaining Money  `json:"remaining"`
		Percent   int    `json:"percent"`
		Over      bool   `json:"over"`
	}

	User struct {
		ID          int64      `json:"id"`
		Email       string     `json:"email"`
		Name        string     `json:"name"`
		Role        Role       `json:"role"`
		Disabled    bool       `json:"disabled"`
		CreatedAt   time.Time  `json:"created_at"`
		LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	}

	Session struct {
		Token      string    `json:"token"`
		UserID     int64     `json:"-"`
		CreatedAt  time.Time `json:"created_at"`
		LastSeenAt time.Time `json:"last_seen_at"`
		ExpiresAt  time.Time `json:"expires_at"`
	}

	Invite struct {
		Code      string     `json:"code"`
		Email     string     `json:"email,omitempty"`
		Role      Role       `json:"role"`
		CreatedBy int64      `json:"created_by"`
		CreatedAt time.Time  `json:"created_at"`
		ExpiresAt time.Time  `json:"expires_at"`
		UsedAt    *time.Time `json:"used_at,omitempty"`
		UsedBy    int64      `json:"used_by,omitempty"`
	}

	Settings struct {
		OpenRegistration         bool   `json:"open_registration"`
		Currency                 string `json:"currency"`
		InactivityTimeoutMinutes int    `json:"inactivity_timeout_minutes"`
	}

	Device struct {
		Token    string    `json:"token"`
		UserID   int64     `json:"-"`
		Platform string    `json:"platform"`
		LastSeen time.Time `json:"last_seen"`
	}

	// Filter narrows transaction listings and exports. Zero fields are ignored.
	Filter struct {
		From       Date
		To         Date // inclusive
		Type       TxType
		CategoryID int64
		Tag        string
		Query      string
		Limit      int
		Offset     int
	}
)

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	if d.Year() < 1970 || d.Year() > 2200 {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t TxType) Valid() bool { return t == Income || t == Expense }

func (k CategoryKind) Valid() bool {
	return k == KindIncome || k == KindExpense || k == KindBoth
}

// Accepts reports whether a category of this kind may classify t.
func (k CategoryKind) Accepts(t TxType) bool {
	switch k {
	case KindBoth:
		return true
	case KindIncome:
		return t == Income
	case KindExpense:
		return t == Expense
	}
	return false
}

func (k ReminderKind) Valid() bool { return k == Payment || k == Collection }

// TxType is the transaction type a completed reminder turns into.
func (k ReminderKind) TxType() TxType {
	if k == Collection {
		return Income
	}
	return Expense
}

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

func (c Category) IsSystem() bool { return c.UserID == 0 }

func (c Category) Validate() error {
	var v ValidationError
	if name := strings.TrimSpace(c.Name); name == "" {
		v.Add("name", ErrEmptyName)
	} else if len(name) > maxName {
		v.Add("name", errors.New("name too long (max 60 characters)"))
	}
	if !c.Kind.Valid() {
		v.Add("kind", ErrInvalidKind)
	}
	return v.OrNil()
}

// NormalizeTags lower-cases, trims and de-duplicates tags, preserving order.
func NormalizeTags(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (t Transaction) Validate() error {
	var v ValidationError
	if !t.Type.Valid() {
		v.Add("type", ErrInvalidKind)
	}
	if err := t.Amount.Validate(); err != nil {
		v.Add("amount", err)
	}
	if t.CategoryID <= 0 {
		v.Add("category_id", ErrNotFound)
	}
	if err := t.Date.Validate(); err != nil {
		v.Add("date", err)
	}
	if len(t.Description) > maxDescription {
		v.Add("description", errors.New("description too long (max 200 characters)"))
	}
	if len(t.Tags) > maxTags {
		v.Add("tags", errors.New("too many tags (max 10)"))
	}
	for _, tag := range t.Tags {
		if len(tag) > maxTagLength {
			v.Add("tags", errors.New("tag too long (max 32 characters)"))
			break
		}
	}
	return v.OrNil()
}

func (r Reminder) Validate() error {
	var v ValidationError
	if !r.Kind.Valid() {
		v.Add("kind", ErrInvalidKind)
	}
	if title := strings.TrimSpace(r.Title); title == "" {
		v.Add("title", ErrEmptyDescription)
	} else if len(title) > maxDescription {
		v.Add("title", errors.New("title too long (max 200 characters)"))
	}
	if err := r.Amount.Validate(); err != nil {
		v.Add("amount", err)
	}
	if r.CategoryID <= 0 {
		v.Add("category_id", ErrNotFound)
	}
	if err := r.DueDate.Validate(); err != nil {
		v.Add("due_date", err)
	}
	if !r.Repeat.Valid() {
		v.Add("repeat", ErrInvalidRepeat)
	}
	if r.NotifyDaysBefore < 0 || r.NotifyDaysBefore > maxNotifyDays {
		v.Add("notify_days_before", errors.New("must be between 0 and 30"))
	}
	return v.OrNil()
}

// Overdue reports whether an open reminder's due date is before today.
func (r Reminder) Overdue(today Date) bool {
	return !r.Completed && r.DueDate.Before(today)
}

func (b Budget) Validate() error {
	var v ValidationError
	if b.CategoryID <= 0 {
		v.Add("category_id", ErrNotFound)
	}
	if err := b.Limit.Validate(); err != nil {
		v.Add("limit", err)
	}
	if !b.Period.Valid() {
		v.Add("period", ErrInvalidPeriod)
	}
	if b.AlertPercent < 1 || b.AlertPercent > 100 {
		v.Add("alert_percent", errors.New("must be between 1 and 100"))
	}
	return v.OrNil()
}

// NormalizeEmail trims and lower-cases an address and checks its syntax.
func NormalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", ErrInvalidEmail
	}
	return s, nil
}

func ValidatePassword(p string) error {
	if len(p) < 8 || len(p) > 72 {
		return ErrWeakPassword
	}
	return nil
}

// Expired reports whether the session is past its absolute lifetime or has
// been idle longer than inactivity.
func (s Session) Expired(now time.Time, inactivity time.Duration) bool {
	if !now.Before(s.ExpiresAt) {
		return true
	}
	return inactivity > 0 && now.Sub(s.LastSeenAt) > inactivity
}

// Usable reports whether the invite can be redeemed by email at now.
// An invite bound to an address only accepts that address.
func (i Invite) Usable(email string, now time.Time) bool {
	if i.UsedAt != nil || !now.Before(i.ExpiresAt) {
		return false
	}
	return i.Email == "" || strings.EqualFold(i.Email, email)
}

func (s Settings) Validate() error {
	var v ValidationError
	if len(strings.TrimSpace(s.Currency)) != 3 {
		v.Add("currency", errors.New("must be a 3-letter ISO code"))
	}
	if s.InactivityTimeoutMinutes < 0 || s.InactivityTimeoutMinutes > 7*24*60 {
		v.Add("inactivity_timeout_minutes", errors.New("must be between 0 and 10080"))
	}
	return v.OrNil()
}

// DefaultSettings is what a fresh installation starts with.
func DefaultSettings() Settings {
	return Settings{
		OpenRegistration:         false,
		Currency:                 "EUR",
		InactivityTimeoutMinutes: 30,
	}
}
