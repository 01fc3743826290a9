package notifications

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
)

var templateFuncs = template.FuncMap{
	"money": FormatMoney,
}

var bodyTemplates = map[string]*template.Template{
	TemplateOrderConfirmation: mustTemplate(TemplateOrderConfirmation,
		"Thank you for your order {{.orderCode}}.\nAmount due: {{money .currency .amount}}\nWe will let you know when it ships.\n"),
	TemplateOrderCancelled: mustTemplate(TemplateOrderCancelled,
		"Your order {{.orderCode}} has been cancelled.{{if .reason}}\nReason: {{.reason}}{{end}}\n"),
	TemplateOrderCancelFailed: mustTemplate(TemplateOrderCancelFailed,
		"We could not cancel order {{.orderCode}} because it is already {{.status}}.\n"),
	TemplateOrderShipped: mustTemplate(TemplateOrderShipped,
		"Good news! Order {{.orderCode}} is on its way.\n"),
	TemplateOrderDelivered: mustTemplate(TemplateOrderDelivered,
		"Order {{.orderCode}} has been delivered. Enjoy!\n"),
	TemplateOrderRefunded: mustTemplate(TemplateOrderRefunded,
		"Order {{.orderCode}} has been refunded.\n"),
	TemplatePaymentReceived: mustTemplate(TemplatePaymentReceived,
		"We received {{money .currency .amount}} for order {{.orderCode}} (reference {{.reference}}).\n"),
	TemplateLowStock: mustTemplate(TemplateLowStock,
		"{{.title}} is running low: {{.stock}} left (alert level {{.lowAlert}}).\n"),
}

func mustTemplate(name, body string) *template.Template {
	return template.Must(template.New(name).Funcs(templateFuncs).Option("missingkey=zero").Parse(body))
}

// Render produces the plain-text body for templateID. Unknown templates fall
// back to a sorted key/value listing of the variables.
func Render(templateID string, variables map[string]any) (string, error) {
	tmpl, ok := bodyTemplates[templateID]
	if !ok {
		return renderFallback(variables), nil
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, variables); err != nil {
		return "", fmt.Errorf("render %s: %w", templateID, err)
	}
	return buf.String(), nil
}

func renderFallback(variables map[string]any) string {
	keys := make([]string, 0, len(variables))
	for key := range variables {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %v\n", key, variables[key])
	}
	return b.String()
}

// FormatMoney renders minor units as "<currency> <major>.<minor>". Values that
// passed through JSON arrive as float64 and are accepted too.
func FormatMoney(currency any, amount any) string {
	var cents decimal.Decimal
	switch v := amount.(type) {
	case int:
		cents = decimal.NewFromInt(int64(v))
	case int64:
		cents = decimal.NewFromInt(v)
	case float64:
		cents = decimal.NewFromFloat(v)
	case decimal.Decimal:
		cents = v
	default:
		cents = decimal.Zero
	}
	major := cents.Shift(-2).StringFixed(2)
	code := strings.TrimSpace(fmt.Sprint(currency))
	if code == "" || code == "<nil>" {
		return major
	}
	return code + " " + major
}
