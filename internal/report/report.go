// Package report aggregates the ledgers into daily and range views. All
// functions are pure; callers load the ledgers and pass them in.
package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"medipos/internal/domain"
	"medipos/internal/store"
)

// Daily filters all three ledgers to one calendar day and totals them.
// Net is sales minus recoveries minus expenses.
func Daily(day string, sales []domain.Sale, recoveries []domain.Recovery, expenses []domain.Expense) (*domain.DailySummary, error) {
	if _, err := domain.ParseDay(day); err != nil {
		return nil, fmt.Errorf("%w: report date must be YYYY-MM-DD", store.ErrValidation)
	}

	summary := &domain.DailySummary{
		Date:       day,
		Sales:      make([]domain.Sale, 0, 8),
		Recoveries: make([]domain.Recovery, 0, 4),
		Expenses:   make([]domain.Expense, 0, 4),
	}
	totalSales := decimal.Zero
	totalRecoveries := decimal.Zero
	totalExpenses := decimal.Zero

	for _, sale := range sales {
		if sale.Date == day {
			summary.Sales = append(summary.Sales, sale)
			totalSales = totalSales.Add(sale.GrandTotal)
		}
	}
	for _, rec := range recoveries {
		if rec.Date == day {
			summary.Recoveries = append(summary.Recoveries, rec)
			totalRecoveries = totalRecoveries.Add(rec.Amount)
		}
	}
	for _, exp := range expenses {
		if exp.Date == day {
			summary.Expenses = append(summary.Expenses, exp)
			totalExpenses = totalExpenses.Add(exp.Amount)
		}
	}

	summary.TotalSales = totalSales.Round(2)
	summary.TotalRecoveries = totalRecoveries.Round(2)
	summary.TotalExpenses = totalExpenses.Round(2)
	summary.Net = totalSales.Sub(totalRecoveries).Sub(totalExpenses).Round(2)
	return summary, nil
}

// Range returns the ledger entries whose dates fall inside [start, end],
// inclusive on both ends. Reading a range never mutates anything, so asking
// for the same range twice yields the same answer.
func Range(start, end string, sales []domain.Sale, recoveries []domain.Recovery, expenses []domain.Expense) (*domain.RangeResult, error) {
	startDay, err := domain.ParseDay(start)
	if err != nil {
		return nil, fmt.Errorf("%w: start date must be YYYY-MM-DD", store.ErrValidation)
	}
	endDay, err := domain.ParseDay(end)
	if err != nil {
		return nil, fmt.Errorf("%w: end date must be YYYY-MM-DD", store.ErrValidation)
	}
	if startDay.After(endDay) {
		return nil, fmt.Errorf("%w: start date is after end date", store.ErrValidation)
	}

	inRange := func(day string) bool {
		t, err := domain.ParseDay(day)
		if err != nil {
			return false
		}
		return !t.Before(startDay) && !t.After(endDay)
	}

	result := &domain.RangeResult{
		StartDate:  start,
		EndDate:    end,
		Sales:      make([]domain.Sale, 0, 16),
		Recoveries: make([]domain.Recovery, 0, 8),
		Expenses:   make([]domain.Expense, 0, 8),
	}
	for _, sale := range sales {
		if inRange(sale.Date) {
			result.Sales = append(result.Sales, sale)
		}
	}
	for _, rec := range recoveries {
		if inRange(rec.Date) {
			result.Recoveries = append(result.Recoveries, rec)
		}
	}
	for _, exp := range expenses {
		if inRange(exp.Date) {
			result.Expenses = append(result.Expenses, exp)
		}
	}
	return result, nil
}
