// Package importer turns bank statement files into ledger entries.
package importer

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCategory is used when a transaction carries no usable name.
const DefaultCategory = "Uncategorized"

// entryNamespace seeds deterministic entry IDs so re-importing a statement
// yields the same IDs.
var entryNamespace = uuid.MustParse("6f1c3f5e-3b0a-4c55-9a57-0d5e3c1f7b21")

var (
	severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// typeCategories maps OFX transaction types that already say what the
// money was for.
var typeCategories = map[string]string{
	"INT":    "Interest",
	"DIV":    "Dividends",
	"FEE":    "Bank Fees",
	"SRVCHG": "Bank Fees",
	"ATM":    "Cash & ATM",
}

var purchasePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"ACH CREDIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"DEBIT PURCHASE ",
}

// Result is the outcome of one parsed statement file.
type Result struct {
	Entries  []core.Entry
	Accounts []string
	Skipped  int
}

// OFXParser reads OFX/QFX statements. Credits become income and debits
// become expenses.
type OFXParser struct {
	logger *log.Logger
}

func NewOFXParser(logger *log.Logger) *OFXParser {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &OFXParser{logger: logger.WithComponent(log.ComponentImport)}
}

// normalize fixes formatting quirks some banks emit that ofxgo rejects.
func normalize(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagRe.ReplaceAllString(content, "$1>")
}

// Parse reads a whole statement. Transactions that cannot become a valid
// entry are skipped and counted.
func (p *OFXParser) Parse(ctx context.Context, r io.Reader) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read OFX: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(normalize(string(raw))))
	if err != nil {
		return Result{}, fmt.Errorf("parse OFX: %w", err)
	}

	var res Result
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		acct := string(stmt.BankAcctFrom.AcctID)
		res.Accounts = append(res.Accounts, acct)
		p.collect(ctx, &res, acct, stmt.BankTranList.Transactions)
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		acct := string(stmt.CCAcctFrom.AcctID)
		res.Accounts = append(res.Accounts, acct)
		p.collect(ctx, &res, acct, stmt.BankTranList.Transactions)
	}

	p.logger.InfoContext(ctx, "Parsed OFX statement",
		log.FieldEntryCount, len(res.Entries),
		"accounts", len(res.Accounts),
		"skipped", res.Skipped)
	return res, nil
}

func (p *OFXParser) collect(ctx context.Context, res *Result, acct string, txs []ofxgo.Transaction) {
	for _, tx := range txs {
		e, err := convert(acct, tx)
		if err != nil {
			res.Skipped++
			p.logger.DebugContext(ctx, "Skipping OFX transaction",
				"fitid", string(tx.FiTID),
				log.FieldError, err.Error())
			continue
		}
		res.Entries = append(res.Entries, e)
	}
}

func convert(acct string, tx ofxgo.Transaction) (core.Entry, error) {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(4))
	if err != nil {
		return core.Entry{}, fmt.Errorf("amount: %w", err)
	}
	if amount.IsZero() {
		return core.Entry{}, fmt.Errorf("zero amount")
	}
	if tx.DtPosted.IsZero() {
		return core.Entry{}, fmt.Errorf("missing posted date")
	}

	typ := core.Income
	if amount.IsNegative() {
		typ = core.Expense
		amount = amount.Neg()
	}
	posted := tx.DtPosted.Time
	e := core.Entry{
		ID:       entryID(acct, tx),
		Type:     typ,
		Category: category(tx),
		Amount:   amount,
		Date:     core.NewDate(posted.Year(), int(posted.Month()), posted.Day()),
	}
	return e, e.Validate()
}

func entryID(acct string, tx ofxgo.Transaction) string {
	if tx.FiTID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(entryNamespace, []byte(acct+"/"+string(tx.FiTID))).String()
}

// category picks the transaction type label when it is meaningful and the
// cleaned payee name otherwise.
func category(tx ofxgo.Transaction) string {
	if c, ok := typeCategories[tx.TrnType.String()]; ok {
		return c
	}

	name := string(tx.Name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		name = string(tx.Payee.Name)
	} else if tx.Memo != "" && isGeneric(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)
	upper := strings.ToUpper(name)
	for _, prefix := range purchasePrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}
	// leading MM/DD
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	if len(name) > 100 {
		name = strings.TrimSpace(strings.ToValidUTF8(name[:100], ""))
	}
	if name == "" {
		return DefaultCategory
	}
	return name
}

func isGeneric(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// FilterNew drops imported entries whose IDs the ledger already holds.
func FilterNew(existing, imported []core.Entry) (fresh []core.Entry, duplicates int) {
	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[e.ID] = struct{}{}
	}
	for _, e := range imported {
		if _, ok := seen[e.ID]; ok {
			duplicates++
			continue
		}
		seen[e.ID] = struct{}{}
		fresh = append(fresh, e)
	}
	return fresh, duplicates
}
