// Package mapper converts between server payloads and local cache rows.
// Conversions are pure and keep every field.
package mapper

import (
	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
)

func StockToLocal(s remote.Stock, status models.SyncStatus) models.Stock {
	return models.Stock{
		ID:             s.ID,
		Created:        s.Created,
		Modified:       s.Modified,
		OrgSlug:        s.OrgSlug,
		OrgID:          s.OrgID,
		OrgUserID:      s.OrgUserID,
		OrgUserName:    s.OrgUserName,
		BatchID:        s.BatchID,
		BatchNumber:    s.BatchNumber,
		ItemID:         s.ItemID,
		ItemName:       s.ItemName,
		CategoryID:     s.CategoryID,
		CategoryName:   s.CategoryName,
		ReceivedDate:   s.ReceivedDate,
		ExpirationDate: s.ExpirationDate,
		PurchasePrice:  s.PurchasePrice.Decimal,
		BillingPrice:   s.BillingPrice.Decimal,
		Quantity:       s.Quantity,
		IsActive:       s.IsActive,
		SyncStatus:     status,
	}
}

func StockToRemote(s models.Stock) remote.Stock {
	return remote.Stock{
		ID:             s.ID,
		Created:        s.Created,
		Modified:       s.Modified,
		OrgID:          s.OrgID,
		OrgSlug:        s.OrgSlug,
		OrgUserID:      s.OrgUserID,
		OrgUserName:    s.OrgUserName,
		BatchID:        s.BatchID,
		BatchNumber:    s.BatchNumber,
		ItemID:         s.ItemID,
		ItemName:       s.ItemName,
		CategoryID:     s.CategoryID,
		CategoryName:   s.CategoryName,
		ReceivedDate:   s.ReceivedDate,
		ExpirationDate: s.ExpirationDate,
		PurchasePrice:  remote.NewMoney(s.PurchasePrice),
		BillingPrice:   remote.NewMoney(s.BillingPrice),
		Quantity:       s.Quantity,
		IsActive:       s.IsActive,
	}
}

func CustomerToLocal(c remote.Customer, status models.SyncStatus) models.Customer {
	return models.Customer{
		ID:          c.ID,
		Created:     c.Created,
		Modified:    c.Modified,
		OrgSlug:     c.OrgSlug,
		OrgID:       c.OrgID,
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		SyncStatus:  status,
	}
}

func CustomerToRemote(c models.Customer) remote.Customer {
	return remote.Customer{
		ID:          c.ID,
		Created:     c.Created,
		Modified:    c.Modified,
		OrgSlug:     c.OrgSlug,
		OrgID:       c.OrgID,
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
	}
}

func TransactionToLocal(t remote.Transaction, status models.SyncStatus) models.Transaction {
	return models.Transaction{
		ID:                t.ID,
		Created:           t.Created,
		Modified:          t.Modified,
		OrgSlug:           t.OrgSlug,
		OrgID:             t.OrgID,
		OrgUserID:         t.OrgUserID,
		OrgUserName:       t.OrgUserName,
		Participant:       t.Participant,
		Reason:            t.Reason,
		Amount:            t.Amount.Decimal,
		TransactionType:   t.TransactionType,
		TransactionBroker: t.TransactionBroker,
		SyncStatus:        status,
	}
}

func TransactionToRemote(t models.Transaction) remote.Transaction {
	return remote.Transaction{
		ID:                t.ID,
		Created:           t.Created,
		Modified:          t.Modified,
		OrgSlug:           t.OrgSlug,
		OrgID:             t.OrgID,
		OrgUserID:         t.OrgUserID,
		OrgUserName:       t.OrgUserName,
		Participant:       t.Participant,
		Reason:            t.Reason,
		Amount:            remote.NewMoney(t.Amount),
		TransactionType:   t.TransactionType,
		TransactionBroker: t.TransactionBroker,
	}
}

func BulkCreditPaymentToLocal(p remote.BulkCreditPayment, status models.SyncStatus) models.BulkCreditPayment {
	return models.BulkCreditPayment{
		ID:                p.ID,
		Created:           p.Created,
		Modified:          p.Modified,
		OrgSlug:           p.OrgSlug,
		OrgID:             p.OrgID,
		OrgUserID:         p.OrgUserID,
		OrgUserName:       p.OrgUserName,
		CustomerID:        p.CustomerID,
		CustomerName:      p.CustomerName,
		BillNumber:        p.BillNumber,
		TransactionBroker: p.TransactionBroker,
		Amount:            p.Amount.Decimal,
		SyncStatus:        status,
	}
}

func BulkCreditPaymentToRemote(p models.BulkCreditPayment) remote.BulkCreditPayment {
	return remote.BulkCreditPayment{
		ID:                p.ID,
		Created:           p.Created,
		Modified:          p.Modified,
		CustomerID:        p.CustomerID,
		OrgSlug:           p.OrgSlug,
		OrgID:             p.OrgID,
		OrgUserID:         p.OrgUserID,
		OrgUserName:       p.OrgUserName,
		BillNumber:        p.BillNumber,
		CustomerName:      p.CustomerName,
		TransactionBroker: p.TransactionBroker,
		Amount:            remote.NewMoney(p.Amount),
	}
}

// BillingToLocal maps a sale and its children; children take the parent status
func BillingToLocal(b remote.Billing, status models.SyncStatus) models.Billing {
	local := models.Billing{
		ID:                  b.ID,
		Created:             b.Created,
		Modified:            b.Modified,
		OrgSlug:             b.OrgSlug,
		OrgID:               b.OrgID,
		OrgUserID:           b.OrgUserID,
		OrgUserName:         b.OrgUserName,
		BillNumber:          b.BillNumber,
		PlacedAt:            b.PlacedAt,
		CustomerID:          b.CustomerID,
		CustomerName:        b.CustomerName,
		CustomerPhoneNumber: b.CustomerPhoneNumber,
		IsDelivered:         b.IsDelivered,
		SyncStatus:          status,
	}

	for _, item := range b.Items {
		local.Items = append(local.Items, models.BillingItem{
			ID:          item.ID,
			BillingID:   b.ID,
			Created:     item.Created,
			Modified:    item.Modified,
			OrgSlug:     item.OrgSlug,
			OrgID:       item.OrgID,
			OrgUserID:   item.OrgUserID,
			StockID:     item.StockID,
			StockName:   item.StockName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Decimal,
			IsDelivered: item.IsDelivered,
			SyncStatus:  status,
		})
	}
	for _, p := range b.Payments {
		local.Payments = append(local.Payments, models.BillingPayment{
			ID:                p.ID,
			BillingID:         b.ID,
			Created:           p.Created,
			Modified:          p.Modified,
			OrgSlug:           p.OrgSlug,
			OrgID:             p.OrgID,
			OrgUserID:         p.OrgUserID,
			TransactionBroker: p.TransactionBroker,
			Amount:            p.Amount.Decimal,
			SyncStatus:        status,
		})
	}
	return local
}

func BillingToRemote(b models.Billing) remote.Billing {
	out := remote.Billing{
		ID:                  b.ID,
		Created:             b.Created,
		Modified:            b.Modified,
		OrgSlug:             b.OrgSlug,
		OrgID:               b.OrgID,
		OrgUserID:           b.OrgUserID,
		OrgUserName:         b.OrgUserName,
		BillNumber:          b.BillNumber,
		PlacedAt:            b.PlacedAt,
		CustomerID:          b.CustomerID,
		CustomerName:        b.CustomerName,
		CustomerPhoneNumber: b.CustomerPhoneNumber,
		IsDelivered:         b.IsDelivered,
		Items:               make([]remote.BillingItem, 0, len(b.Items)),
		Payments:            make([]remote.BillingPayment, 0, len(b.Payments)),
	}

	for _, item := range b.Items {
		out.Items = append(out.Items, remote.BillingItem{
			ID:          item.ID,
			Created:     item.Created,
			Modified:    item.Modified,
			OrgSlug:     item.OrgSlug,
			OrgID:       item.OrgID,
			OrgUserID:   item.OrgUserID,
			StockName:   item.StockName,
			StockID:     item.StockID,
			IsDelivered: item.IsDelivered,
			BillingID:   b.ID,
			Quantity:    item.Quantity,
			UnitPrice:   remote.NewMoney(item.UnitPrice),
		})
	}
	for _, p := range b.Payments {
		out.Payments = append(out.Payments, remote.BillingPayment{
			ID:                p.ID,
			Created:           p.Created,
			Modified:          p.Modified,
			OrgSlug:           p.OrgSlug,
			OrgID:             p.OrgID,
			OrgUserID:         p.OrgUserID,
			BillingID:         b.ID,
			TransactionBroker: p.TransactionBroker,
			Amount:            remote.NewMoney(p.Amount),
		})
	}
	return out
}
