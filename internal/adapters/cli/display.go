package cli

import (
	"fmt"
	"io"
	"strings"

	"stock-engine/internal/app"
	"stock-engine/internal/core"
)

func rule(out io.Writer, ch string, width int) {
	fmt.Fprintln(out, strings.Repeat(ch, width))
}

func header(out io.Writer, title string, width int) {
	fmt.Fprintln(out)
	rule(out, "=", width)
	fmt.Fprintf(out, "  %s\n", title)
	rule(out, "=", width)
}

func printProducts(out io.Writer, res *app.ProductListResult) {
	header(out, "PRODUCTS", 78)
	if len(res.Products) == 0 {
		fmt.Fprintln(out, "  No products found.")
		rule(out, "=", 78)
		return
	}
	fmt.Fprintf(out, "  %-5s %-10s %-26s %-6s %10s %7s  %s\n", "ID", "CODE", "NAME", "UNIT", "PRICE", "REORDER", "STATUS")
	rule(out, "-", 78)
	for _, p := range res.Products {
		fmt.Fprintf(out, "  %-5d %-10s %-26s %-6s %10s %7d  %s\n",
			p.ID, p.Code, p.Name, p.UnitOfMeasure, p.UnitPrice.StringFixed(2), p.ReorderPoint, p.Status)
	}
	rule(out, "=", 78)
}

func printWarehouses(out io.Writer, res *app.WarehouseListResult) {
	header(out, "WAREHOUSES", 62)
	if len(res.Warehouses) == 0 {
		fmt.Fprintln(out, "  No warehouses found.")
		rule(out, "=", 62)
		return
	}
	fmt.Fprintf(out, "  %-5s %-10s %-22s %s\n", "ID", "CODE", "NAME", "LOCATION")
	rule(out, "-", 62)
	for _, w := range res.Warehouses {
		fmt.Fprintf(out, "  %-5d %-10s %-22s %s\n", w.ID, w.Code, w.Name, w.Location)
	}
	rule(out, "=", 62)
}

func printRawMaterials(out io.Writer, res *app.RawMaterialListResult) {
	header(out, "RAW MATERIALS", 70)
	if len(res.RawMaterials) == 0 {
		fmt.Fprintln(out, "  No raw materials found.")
		rule(out, "=", 70)
		return
	}
	fmt.Fprintf(out, "  %-5s %-10s %-24s %-6s %8s %8s\n", "ID", "CODE", "NAME", "UNIT", "POOL", "REORDER")
	rule(out, "-", 70)
	for _, m := range res.RawMaterials {
		fmt.Fprintf(out, "  %-5d %-10s %-24s %-6s %8d %8d\n",
			m.ID, m.Code, m.Name, m.UnitOfMeasure, m.OpeningStock, m.ReorderPoint)
	}
	rule(out, "=", 70)
}

func printStockLevels(out io.Writer, res *app.StockResult) {
	header(out, "STOCK LEVELS", 80)
	if len(res.Levels) == 0 {
		fmt.Fprintln(out, "  No stock on hand.")
		rule(out, "=", 80)
		return
	}
	fmt.Fprintf(out, "  %-10s %-24s %-10s %8s %8s  %s\n", "CODE", "PRODUCT", "WAREHOUSE", "ON HAND", "REORDER", "STATUS")
	rule(out, "-", 80)
	for _, l := range res.Levels {
		fmt.Fprintf(out, "  %-10s %-24s %-10s %8d %8d  %s\n",
			l.ProductCode, l.ProductName, l.WarehouseCode, l.OnHand, l.ReorderPoint, l.Status)
	}
	rule(out, "=", 80)
}

func printRawMaterialLevels(out io.Writer, res *app.RawMaterialLevelsResult) {
	header(out, "RAW MATERIAL LEVELS", 72)
	fmt.Fprintf(out, "  %-10s %-24s %8s %10s %8s\n", "CODE", "NAME", "POOL", "WAREHOUSED", "REORDER")
	rule(out, "-", 72)
	for _, l := range res.Levels {
		flag := ""
		if l.BelowReorder {
			flag = "  LOW"
		}
		fmt.Fprintf(out, "  %-10s %-24s %8d %10d %8d%s\n",
			l.Code, l.Name, l.PoolQuantity, l.Warehoused, l.ReorderPoint, flag)
	}
	rule(out, "=", 72)
}

func printLedger(out io.Writer, res *app.LedgerResult) {
	header(out, fmt.Sprintf("LEDGER %s (on hand %d)", res.Item, res.OnHand), 62)
	fmt.Fprintf(out, "  %-6s %-9s %-14s %-12s %10s\n", "ROW", "WH", "BATCH", "EXPIRY", "QTY")
	rule(out, "-", 62)
	for _, r := range res.Records {
		batch, expiry := "-", "-"
		if r.BatchNo != nil {
			batch = *r.BatchNo
		}
		if r.ExpiryDate != nil {
			expiry = r.ExpiryDate.Format("2006-01-02")
		}
		fmt.Fprintf(out, "  %-6d %-9d %-14s %-12s %10d\n", r.ID, r.WarehouseID, batch, expiry, r.Quantity)
	}
	rule(out, "=", 62)
}

func printTransfers(out io.Writer, res *app.TransferListResult) {
	header(out, "WAREHOUSE TRANSFERS", 72)
	if len(res.Transfers) == 0 {
		fmt.Fprintln(out, "  No transfers recorded.")
		rule(out, "=", 72)
		return
	}
	fmt.Fprintf(out, "  %-6s %-18s %6s %6s %8s  %s\n", "ID", "ITEM", "FROM", "TO", "QTY", "WHEN")
	rule(out, "-", 72)
	for _, t := range res.Transfers {
		fmt.Fprintf(out, "  %-6d %-18s %6d %6d %8d  %s\n",
			t.ID, t.Item, t.FromWarehouseID, t.ToWarehouseID, t.Quantity, t.TransferredAt.Format("2006-01-02 15:04"))
	}
	rule(out, "=", 72)
}

func printInvoice(out io.Writer, inv *core.Invoice) {
	fmt.Fprintln(out)
	rule(out, "-", 66)
	fmt.Fprintf(out, "  Invoice:   %s\n", inv.InvoiceNumber)
	fmt.Fprintf(out, "  Customer:  %s\n", inv.CustomerName)
	fmt.Fprintf(out, "  Warehouse: %d\n", inv.WarehouseID)
	fmt.Fprintf(out, "  Date:      %s\n", inv.InvoiceDate.Format("2006-01-02"))
	fmt.Fprintf(out, "  Status:    %s\n", inv.Status)
	rule(out, "-", 66)
	fmt.Fprintf(out, "  %-5s %-25s %8s %12s %12s\n", "LINE", "PRODUCT", "QTY", "UNIT PRICE", "TOTAL")
	rule(out, "-", 66)
	for _, it := range inv.Items {
		fmt.Fprintf(out, "  %-5d %-25s %8d %12s %12s\n",
			it.LineNumber, it.ProductName, it.Quantity, it.UnitPrice.StringFixed(2), it.LineTotal.StringFixed(2))
	}
	rule(out, "-", 66)
	fmt.Fprintf(out, "  %-52s %12s\n", "TOTAL", inv.TotalAmount.StringFixed(2))
}

func printInvoices(out io.Writer, res *app.InvoiceListResult) {
	header(out, "INVOICES", 76)
	if len(res.Invoices) == 0 {
		fmt.Fprintln(out, "  No invoices found.")
		rule(out, "=", 76)
		return
	}
	fmt.Fprintf(out, "  %-5s %-16s %-22s %4s %-8s %12s\n", "ID", "NUMBER", "CUSTOMER", "WH", "STATUS", "TOTAL")
	rule(out, "-", 76)
	for _, inv := range res.Invoices {
		fmt.Fprintf(out, "  %-5d %-16s %-22s %4d %-8s %12s\n",
			inv.ID, inv.InvoiceNumber, inv.CustomerName, inv.WarehouseID, inv.Status, inv.TotalAmount.StringFixed(2))
	}
	rule(out, "=", 76)
}

func printRequirement(out io.Writer, req *core.ProductionRequirement) {
	header(out, fmt.Sprintf("BILL OF MATERIALS: %s %s", req.ProductCode, req.ProductName), 60)
	fmt.Fprintf(out, "  %-10s %-30s %12s\n", "CODE", "RAW MATERIAL", "PER UNIT")
	rule(out, "-", 60)
	for _, it := range req.Items {
		fmt.Fprintf(out, "  %-10s %-30s %12d\n", it.RawMaterialCode, it.RawMaterialName, it.QuantityPerUnit)
	}
	rule(out, "=", 60)
}

func printCalculation(out io.Writer, calc *core.MaterialCalculation) {
	header(out, fmt.Sprintf("MATERIALS FOR %d x %s", calc.BuildQuantity, calc.ProductName), 70)
	fmt.Fprintf(out, "  %-10s %-22s %10s %10s  %s\n", "CODE", "NAME", "REQUIRED", "AVAILABLE", "")
	rule(out, "-", 70)
	for _, m := range calc.Materials {
		mark := "ok"
		if !m.Sufficient {
			mark = fmt.Sprintf("SHORT %d", m.Required-m.Available)
		}
		fmt.Fprintf(out, "  %-10s %-22s %10d %10d  %s\n", m.Code, m.Name, m.Required, m.Available, mark)
	}
	rule(out, "=", 70)
}

func printProduction(out io.Writer, res *core.ProductionResult) {
	source := "production pool"
	if res.WarehouseID != nil {
		source = fmt.Sprintf("warehouse %d", *res.WarehouseID)
	}
	fmt.Fprintf(out, "Approved %d units of product %d from %s.\n", res.BuildQuantity, res.ProductID, source)
	for _, m := range res.Materials {
		fmt.Fprintf(out, "  %-10s %-22s used %6d  left %6d\n", m.Code, m.Name, m.Consumed, m.Remaining)
	}
}
