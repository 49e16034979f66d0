// Package alerting turns Metrics Engine outputs into user-facing stock and
// expiry alerts.
package alerting

import (
	"fmt"
	"time"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/metrics"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// Kind identifies the rule that raised an alert
type Kind string

const (
	LowStock      Kind = "LOW_STOCK"
	Reorder       Kind = "REORDER"
	ExpiryWarning Kind = "EXPIRY_WARNING"
	ExpiryRisk    Kind = "EXPIRY_RISK"
)

// Severity is the alert tier
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Config holds the alert thresholds
type Config struct {
	LowStockThreshold int64 `json:"low_stock_threshold"`
	ReorderThreshold  int64 `json:"reorder_threshold"`
	ExpiryWarningDays int   `json:"expiry_warning_days"`
	ExpiryRiskDays    int   `json:"expiry_risk_days"`
}

// DefaultConfig returns the stock and expiry thresholds used by the dashboard
func DefaultConfig() Config {
	return Config{
		LowStockThreshold: 20,
		ReorderThreshold:  30,
		ExpiryWarningDays: 60,
		ExpiryRiskDays:    90,
	}
}

// Validate checks that thresholds are non-negative and that each routine
// tier is at least as wide as its severe tier
func (c Config) Validate() error {
	switch {
	case c.LowStockThreshold < 0 || c.ReorderThreshold < 0:
		return fmt.Errorf("%w: stock thresholds must not be negative", entity.ErrInvalidPolicy)
	case c.ExpiryWarningDays < 0 || c.ExpiryRiskDays < 0:
		return fmt.Errorf("%w: expiry windows must not be negative", entity.ErrInvalidPolicy)
	case c.ReorderThreshold < c.LowStockThreshold:
		return fmt.Errorf("%w: reorder threshold %d is below low stock threshold %d",
			entity.ErrInvalidPolicy, c.ReorderThreshold, c.LowStockThreshold)
	case c.ExpiryRiskDays < c.ExpiryWarningDays:
		return fmt.Errorf("%w: expiry risk window %d is shorter than warning window %d",
			entity.ErrInvalidPolicy, c.ExpiryRiskDays, c.ExpiryWarningDays)
	}
	return nil
}

// Alert is one user-facing warning about a product
type Alert struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Product  string   `json:"product"`
	Detail   string   `json:"detail"`
}

// Policy evaluates alerts with a fixed configuration
type Policy struct {
	config Config
}

// NewPolicy creates a policy after validating its configuration
func NewPolicy(config Config) (*Policy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Policy{config: config}, nil
}

// Config returns the thresholds the policy was built with
func (p *Policy) Config() Config {
	return p.config
}

// Evaluate raises at most one stock alert and one expiry alert per product,
// always the most severe tier that applies. Stock alerts come first, in
// LowStock order, followed by expiry alerts ordered by earliest expiry.
func (p *Policy) Evaluate(rs entity.RecordSet, reference time.Time) []Alert {
	alerts := p.stockAlerts(rs)
	return append(alerts, p.expiryAlerts(rs, reference)...)
}

func (p *Policy) stockAlerts(rs entity.RecordSet) []Alert {
	alerts := []Alert{}
	for _, level := range metrics.LowStock(rs, p.config.ReorderThreshold) {
		if level.MinInventory < p.config.LowStockThreshold {
			alerts = append(alerts, Alert{
				Kind:     LowStock,
				Severity: SeverityCritical,
				Product:  level.Product,
				Detail:   fmt.Sprintf("inventory fell to %d, below %d", level.MinInventory, p.config.LowStockThreshold),
			})
			continue
		}
		alerts = append(alerts, Alert{
			Kind:     Reorder,
			Severity: SeverityWarning,
			Product:  level.Product,
			Detail:   fmt.Sprintf("inventory fell to %d, reorder below %d", level.MinInventory, p.config.ReorderThreshold),
		})
	}
	return alerts
}

func (p *Policy) expiryAlerts(rs entity.RecordSet, reference time.Time) []Alert {
	// Items arrive ordered by expiry, so the first item seen per product is its earliest
	warnings := metrics.ExpiringWithin(rs, reference, p.config.ExpiryWarningDays)
	risks := metrics.ExpiringWithin(rs, reference, p.config.ExpiryRiskDays)

	alerted := make(map[string]bool)
	alerts := []Alert{}
	for _, item := range warnings {
		if alerted[item.Product] {
			continue
		}
		alerted[item.Product] = true
		alerts = append(alerts, Alert{
			Kind:     ExpiryWarning,
			Severity: SeverityCritical,
			Product:  item.Product,
			Detail:   expiryDetail(item, p.config.ExpiryWarningDays),
		})
	}
	for _, item := range risks {
		if alerted[item.Product] {
			continue
		}
		alerted[item.Product] = true
		alerts = append(alerts, Alert{
			Kind:     ExpiryRisk,
			Severity: SeverityWarning,
			Product:  item.Product,
			Detail:   expiryDetail(item, p.config.ExpiryRiskDays),
		})
	}
	return alerts
}

func expiryDetail(item metrics.ExpiryItem, days int) string {
	return fmt.Sprintf("%d units expire on %s, within %d days",
		item.InventoryAfter, item.ExpiryDate.Format("2006-01-02"), days)
}
