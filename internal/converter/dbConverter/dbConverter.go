package dbConverter

import (
	"github.com/shiveeg1/fund-agent/internal/model"
	"github.com/shiveeg1/fund-agent/internal/model/dbModel"
)

func ConvertTransaction(dbTxn dbModel.Transaction) model.Transaction {
	return model.Transaction{
		Folio:      dbTxn.Folio,
		SchemeName: dbTxn.SchemeName,
		Date:       dbTxn.TxnDate,
		TxnType:    model.TxnType(dbTxn.TxnType),
		Amount:     dbTxn.Amount,
		Units:      dbTxn.Units,
		Nav:        dbTxn.Nav,
	}
}

func ConvertTransactionToDb(txn model.Transaction) dbModel.Transaction {
	return dbModel.Transaction{
		Folio:      txn.Folio,
		SchemeName: txn.SchemeName,
		TxnDate:    txn.Date,
		TxnType:    string(txn.TxnType),
		Amount:     txn.Amount,
		Units:      txn.Units,
		Nav:        txn.Nav,
	}
}

func ConvertNavRecord(dbNav dbModel.NavRecord) model.PriceRecord {
	return model.PriceRecord{
		SchemeCode: dbNav.SchemeCode,
		SchemeName: dbNav.SchemeName,
		Nav:        dbNav.Nav,
		AsOfDate:   dbNav.AsOfDate,
	}
}

func ConvertHolding(dbHolding dbModel.Holding) model.Holding {
	return model.Holding{
		SchemeCode: dbHolding.SchemeCode,
		Isin:       dbHolding.Isin,
		StockName:  dbHolding.StockName,
		WeightPct:  dbHolding.WeightPct,
		AsOfDate:   dbHolding.AsOfDate,
	}
}

func ConvertMetricToDb(runID string, m model.MetricRecord) dbModel.MetricRecord {
	return dbModel.MetricRecord{
		RunID:       runID,
		SchemeName:  m.SchemeName,
		Xirr:        m.Xirr,
		Cagr:        m.Cagr,
		Sharpe:      m.Sharpe,
		Sortino:     m.Sortino,
		Beta:        m.Beta,
		Alpha:       m.Alpha,
		MaxDrawdown: m.MaxDrawdown,
		Volatility:  m.Volatility,
	}
}

func ConvertTaxEventToDb(runID string, e model.TaxEvent) dbModel.TaxEvent {
	return dbModel.TaxEvent{
		RunID:           runID,
		Folio:           e.Folio,
		SchemeName:      e.SchemeName,
		RedemptionDate:  e.RedemptionDate,
		PurchaseDate:    e.PurchaseDate,
		Units:           e.Units,
		CostBasis:       e.CostBasis,
		RedemptionValue: e.RedemptionValue,
		Gain:            e.Gain,
		GainType:        string(e.GainType),
		FundType:        string(e.FundType),
		TaxAmount:       e.TaxAmount,
	}
}

func ConvertOverlapToDb(runID string, o model.OverlapRecord) dbModel.OverlapRecord {
	return dbModel.OverlapRecord{
		RunID:              runID,
		FundA:              o.FundA,
		FundB:              o.FundB,
		JaccardOverlap:     o.JaccardOverlap,
		WeightedOverlapPct: o.WeightedOverlapPct,
		CommonStocks:       o.CommonStocks,
	}
}
