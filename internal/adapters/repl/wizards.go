package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"stock-engine/internal/adapters/cli"
	"stock-engine/internal/app"
	"stock-engine/internal/core"

	"github.com/shopspring/decimal"
)

// handleNewInvoice collects invoice lines interactively and submits them as
// one all-or-nothing invoice.
func handleNewInvoice(ctx context.Context, reader *bufio.Reader, out io.Writer, svc app.ApplicationService, warehouseArg, customer string) error {
	warehouseID, err := strconv.Atoi(warehouseArg)
	if err != nil || warehouseID <= 0 {
		fmt.Fprintf(out, "Invalid warehouse id: %s\n", warehouseArg)
		return nil
	}

	fmt.Fprintf(out, "Invoicing %s from warehouse %d\n", customer, warehouseID)
	fmt.Fprintln(out, "Enter invoice lines. Type 'done' when finished, 'cancel' to abort.")
	fmt.Fprintln(out, "Format per line: <product-id> <quantity> [unit-price]")

	var lines []core.InvoiceLineInput
	lineNum := 1
	for {
		fmt.Fprintf(out, "  Line %d: ", lineNum)
		raw, readErr := reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		if strings.EqualFold(raw, "cancel") || (readErr != nil && raw == "") {
			fmt.Fprintln(out, "Invoice cancelled.")
			return nil
		}
		if strings.EqualFold(raw, "done") {
			break
		}
		if raw == "" {
			continue
		}

		parts := strings.Fields(raw)
		if len(parts) < 2 {
			fmt.Fprintln(out, "  Invalid format. Use: <product-id> <quantity> [unit-price]")
			continue
		}
		productID, err := strconv.Atoi(parts[0])
		if err != nil || productID <= 0 {
			fmt.Fprintln(out, "  Invalid product id.")
			continue
		}
		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty <= 0 {
			fmt.Fprintln(out, "  Invalid quantity.")
			continue
		}
		line := core.InvoiceLineInput{ProductID: productID, Quantity: qty}
		if len(parts) >= 3 {
			price, err := decimal.NewFromString(parts[2])
			if err != nil || price.IsNegative() {
				fmt.Fprintln(out, "  Invalid price.")
				continue
			}
			line.UnitPrice = &price
		}
		lines = append(lines, line)
		lineNum++
	}

	if len(lines) == 0 {
		fmt.Fprintln(out, "No lines entered. Invoice not created.")
		return nil
	}

	fmt.Fprint(out, "Invoice date (YYYY-MM-DD, leave blank for today): ")
	dateInput, _ := reader.ReadString('\n')
	input := core.InvoiceInput{CustomerName: customer, WarehouseID: warehouseID, Items: lines}
	if d := strings.TrimSpace(dateInput); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			fmt.Fprintln(out, "Invalid date. Invoice not created.")
			return nil
		}
		input.InvoiceDate = &parsed
	}

	inv, err := svc.CreateInvoice(ctx, app.Actor{}, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nInvoice %s created. Stock deducted from warehouse %d.\n", inv.InvoiceNumber, inv.WarehouseID)
	return cli.Run(ctx, svc, []string{"show-invoice", strconv.Itoa(inv.ID)}, out, strings.NewReader(""))
}
