package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"stock-engine/internal/app"
	"stock-engine/internal/core"
)

// ErrUsage is returned for an unknown command or missing arguments.
var ErrUsage = errors.New("usage")

// Usage lists the one-shot commands.
const Usage = `Commands:
  products | warehouses | raw-materials
  stock                                         product stock per warehouse
  raw                                           raw material pool and warehoused levels
  ledger <kind> <id>                            ledger rows of one item (kind: product|raw)
  intake <kind> <id> <wh> <qty> [batch] [expiry YYYY-MM-DD]
  receive-raw <raw-id> <qty> [supplier]         add to the production pool
  transfer <kind> <id> <from-wh> <to-wh> <qty>
  transfers [limit]
  invoice                                       create an invoice from JSON on stdin
  invoices [limit] | show-invoice <id>
  bom <product-id>                              show a production requirement
  calc <product-id> <qty>
  approve <product-id> <qty> [wh]
  recompute <product-id> | refresh`

// Run executes a one-shot command as the local operator. args[0] is the
// command name. Output goes to out; the invoice command reads JSON from in.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer, in io.Reader) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command\n%s", ErrUsage, Usage)
	}
	operator := app.Actor{}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "products":
		res, err := svc.ListProducts(ctx)
		if err != nil {
			return err
		}
		printProducts(out, res)

	case "warehouses":
		res, err := svc.ListWarehouses(ctx)
		if err != nil {
			return err
		}
		printWarehouses(out, res)

	case "raw-materials":
		res, err := svc.ListRawMaterials(ctx)
		if err != nil {
			return err
		}
		printRawMaterials(out, res)

	case "stock":
		res, err := svc.GetStockLevels(ctx)
		if err != nil {
			return err
		}
		printStockLevels(out, res)

	case "raw":
		res, err := svc.GetRawMaterialLevels(ctx)
		if err != nil {
			return err
		}
		printRawMaterialLevels(out, res)

	case "ledger":
		if len(args) < 2 {
			return usage("ledger <kind> <id>")
		}
		item, err := core.ParseItemRef(args[0], args[1])
		if err != nil {
			return err
		}
		res, err := svc.GetItemLedger(ctx, item)
		if err != nil {
			return err
		}
		printLedger(out, res)

	case "intake":
		if len(args) < 4 {
			return usage("intake <kind> <id> <wh> <qty> [batch] [expiry YYYY-MM-DD]")
		}
		item, err := core.ParseItemRef(args[0], args[1])
		if err != nil {
			return err
		}
		nums, err := atois(args[2:4]...)
		if err != nil {
			return err
		}
		input := core.IntakeInput{Item: item, WarehouseID: nums[0], Quantity: nums[1]}
		if len(args) >= 5 {
			input.BatchNo = &args[4]
		}
		if len(args) >= 6 {
			exp, err := time.Parse("2006-01-02", args[5])
			if err != nil {
				return fmt.Errorf("%w: expiry must be YYYY-MM-DD", ErrUsage)
			}
			input.ExpiryDate = &exp
		}
		rec, err := svc.IntakeStock(ctx, operator, input)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Received %d of %s into warehouse %d (ledger row %d, now %d).\n",
			input.Quantity, item, rec.WarehouseID, rec.ID, rec.Quantity)

	case "receive-raw":
		if len(args) < 2 {
			return usage("receive-raw <raw-id> <qty> [supplier]")
		}
		nums, err := atois(args[0:2]...)
		if err != nil {
			return err
		}
		input := core.RawMaterialIntakeInput{RawMaterialID: nums[0], Quantity: nums[1]}
		if len(args) >= 3 {
			input.Supplier = args[2]
		}
		m, err := svc.ReceiveRawMaterial(ctx, operator, input)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s pool is now %d %s.\n", m.Name, m.OpeningStock, m.UnitOfMeasure)

	case "transfer":
		if len(args) < 5 {
			return usage("transfer <kind> <id> <from-wh> <to-wh> <qty>")
		}
		item, err := core.ParseItemRef(args[0], args[1])
		if err != nil {
			return err
		}
		nums, err := atois(args[2:5]...)
		if err != nil {
			return err
		}
		t, err := svc.TransferStock(ctx, operator, core.TransferInput{
			Item: item, FromWarehouseID: nums[0], ToWarehouseID: nums[1], Quantity: nums[2],
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Transfer %d: moved %d of %s from warehouse %d to %d.\n",
			t.ID, t.Quantity, t.Item, t.FromWarehouseID, t.ToWarehouseID)

	case "transfers":
		limit, err := optionalInt(args)
		if err != nil {
			return err
		}
		res, err := svc.ListTransfers(ctx, limit)
		if err != nil {
			return err
		}
		printTransfers(out, res)

	case "invoice":
		var input core.InvoiceInput
		if err := json.NewDecoder(in).Decode(&input); err != nil {
			return fmt.Errorf("invalid invoice JSON: %w", err)
		}
		inv, err := svc.CreateInvoice(ctx, operator, input)
		if err != nil {
			return err
		}
		printInvoice(out, inv)

	case "invoices":
		limit, err := optionalInt(args)
		if err != nil {
			return err
		}
		res, err := svc.ListInvoices(ctx, limit)
		if err != nil {
			return err
		}
		printInvoices(out, res)

	case "show-invoice":
		if len(args) < 1 {
			return usage("show-invoice <id>")
		}
		nums, err := atois(args[0])
		if err != nil {
			return err
		}
		inv, err := svc.GetInvoice(ctx, nums[0])
		if err != nil {
			return err
		}
		printInvoice(out, inv)

	case "bom":
		if len(args) < 1 {
			return usage("bom <product-id>")
		}
		nums, err := atois(args[0])
		if err != nil {
			return err
		}
		req, err := svc.GetRequirementByProduct(ctx, nums[0])
		if err != nil {
			return err
		}
		printRequirement(out, req)

	case "calc":
		if len(args) < 2 {
			return usage("calc <product-id> <qty>")
		}
		nums, err := atois(args[0:2]...)
		if err != nil {
			return err
		}
		calc, err := svc.CalculateMaterials(ctx, nums[0], nums[1])
		if err != nil {
			return err
		}
		printCalculation(out, calc)

	case "approve":
		if len(args) < 2 {
			return usage("approve <product-id> <qty> [wh]")
		}
		nums, err := atois(args...)
		if err != nil {
			return err
		}
		input := core.ProductionInput{ProductID: nums[0], Quantity: nums[1]}
		if len(nums) >= 3 {
			input.WarehouseID = &nums[2]
		}
		res, err := svc.ApproveProduction(ctx, operator, input)
		if err != nil {
			return err
		}
		printProduction(out, res)

	case "recompute":
		if len(args) < 1 {
			return usage("recompute <product-id>")
		}
		nums, err := atois(args[0])
		if err != nil {
			return err
		}
		res, err := svc.RecomputeStatus(ctx, nums[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Product %d is %s.\n", res.ProductID, res.Status)

	case "refresh":
		res, err := svc.RefreshStatuses(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Refreshed status of %d products.\n", res.Products)

	default:
		return fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, cmd, Usage)
	}
	return nil
}

func usage(form string) error {
	return fmt.Errorf("%w: %s", ErrUsage, form)
}

func atois(args ...string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrUsage, a)
		}
		out[i] = n
	}
	return out, nil
}

func optionalInt(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	nums, err := atois(args[0])
	if err != nil {
		return 0, err
	}
	return nums[0], nil
}
