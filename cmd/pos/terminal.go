package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Kwoolford/pos-terminal/internal/api"
	"github.com/Kwoolford/pos-terminal/internal/common"
	"github.com/Kwoolford/pos-terminal/internal/config"
	"github.com/Kwoolford/pos-terminal/internal/payment"
	"github.com/Kwoolford/pos-terminal/internal/receipt"
	"github.com/Kwoolford/pos-terminal/internal/session"
)

// terminal is the interactive register loop. Commands mutate the session;
// output goes to the attached writer so tests can capture it.
type terminal struct {
	cfg     *config.Config
	client  *api.Client
	session *session.Session
	out     io.Writer
	logger  zerolog.Logger
}

func (t *terminal) run(ctx context.Context, in io.Reader) {
	t.printf("%s terminal ready. Type 'help' for commands.\n", t.cfg.StoreName)
	scanner := bufio.NewScanner(in)
	t.printf("pos> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if quit := t.dispatch(ctx, line); quit {
				return
			}
		}
		t.printf("pos> ")
	}
}

func (t *terminal) dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "help":
		t.printHelp()
	case "exit", "quit":
		t.printf("goodbye\n")
		return true
	case "search":
		err = t.cmdSearch(ctx, args)
	case "products":
		err = t.cmdProducts(ctx, args)
	case "product":
		err = t.cmdProduct(ctx, args)
	case "padd":
		err = t.cmdProductAdd(ctx, args)
	case "pprice":
		err = t.cmdProductPrice(ctx, args)
	case "pdel":
		err = t.cmdProductDelete(ctx, args)
	case "pstock":
		err = t.cmdStock(ctx, args)
	case "add":
		err = t.cmdAdd(ctx, args)
	case "rm":
		err = t.cmdRemove(ctx, args)
	case "qty":
		err = t.cmdQty(ctx, args)
	case "disc":
		err = t.cmdDiscount(ctx, args)
	case "cartdisc":
		err = t.cmdCartDiscount(ctx, args)
	case "cart":
		t.printCart()
	case "clear":
		t.session.ClearCart(ctx)
		t.printf("cart cleared\n")
	case "checkout":
		err = t.cmdCheckout(ctx, args)
	case "receipt":
		err = t.cmdReceipt(ctx, args)
	case "orders":
		err = t.cmdOrders(ctx, args)
	case "lookup":
		err = t.cmdLookup(ctx, args)
	case "retqty":
		err = t.cmdReturnQty(args)
	case "damaged":
		err = t.cmdDamaged(args)
	case "reason":
		err = t.session.SetReturnReason(strings.Join(args, " "))
	case "retinfo":
		t.printReturn()
	case "retsubmit":
		err = t.cmdReturnSubmit(ctx)
	case "retcancel":
		t.session.CancelReturn(ctx)
		t.printf("return canceled\n")
	default:
		t.printf("unknown command %q, type 'help'\n", cmd)
	}
	if err != nil {
		t.printError(err)
	}
	return false
}

func (t *terminal) cmdSearch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return common.ValidationError("usage: search <query>")
	}
	products, err := t.client.SearchProducts(ctx, strings.Join(args, " "), 20)
	if err != nil {
		return err
	}
	t.printProducts(products)
	return nil
}

func (t *terminal) cmdProducts(ctx context.Context, args []string) error {
	products, err := t.client.ListProducts(ctx, api.ListProductsParams{
		Limit:  50,
		Search: strings.Join(args, " "),
	})
	if err != nil {
		return err
	}
	t.printProducts(products)
	return nil
}

func (t *terminal) cmdProduct(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "usage: product <id>")
	if err != nil {
		return err
	}
	p, err := t.client.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	t.printf("#%d %s (%s) $%.2f on hand: %d category: %s\n", p.ID, p.Name, p.SKU, p.Price, p.OnHand, p.Category)
	return nil
}

func (t *terminal) cmdProductAdd(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return common.ValidationError("usage: padd <sku> <price> <name...>")
	}
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return common.ValidationError("price must be a number")
	}
	p, err := t.client.CreateProduct(ctx, api.ProductCreate{
		SKU:     args[0],
		Price:   price,
		Name:    strings.Join(args[2:], " "),
		Taxable: true,
	})
	if err != nil {
		return err
	}
	t.printf("created product #%d %s\n", p.ID, p.Name)
	return nil
}

func (t *terminal) cmdProductPrice(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "usage: pprice <id> <price>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return common.ValidationError("usage: pprice <id> <price>")
	}
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return common.ValidationError("price must be a number")
	}
	p, err := t.client.UpdateProduct(ctx, id, api.ProductUpdate{Price: &price})
	if err != nil {
		return err
	}
	t.printf("updated #%d %s to $%.2f\n", p.ID, p.Name, p.Price)
	return nil
}

func (t *terminal) cmdProductDelete(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "usage: pdel <id>")
	if err != nil {
		return err
	}
	if err := t.client.DeleteProduct(ctx, id); err != nil {
		return err
	}
	t.printf("deleted product #%d\n", id)
	return nil
}

func (t *terminal) cmdStock(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "usage: pstock <id> <delta> <reason...>")
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return common.ValidationError("usage: pstock <id> <delta> <reason...>")
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return common.ValidationError("delta must be an integer")
	}
	p, err := t.client.AdjustStock(ctx, id, api.StockAdjustment{
		Delta:  delta,
		Reason: strings.Join(args[2:], " "),
	})
	if err != nil {
		return err
	}
	t.printf("#%d %s on hand: %d\n", p.ID, p.Name, p.OnHand)
	return nil
}

func (t *terminal) cmdAdd(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "usage: add <product_id> [qty]")
	if err != nil {
		return err
	}
	qty := 1
	if len(args) > 1 {
		qty, err = strconv.Atoi(args[1])
		if err != nil {
			return common.ValidationError("qty must be an integer")
		}
	}
	p, err := t.client.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	t.session.AddProduct(ctx, *p, qty)
	t.printCart()
	return nil
}

func (t *terminal) cmdRemove(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "usage: rm <product_id>")
	if err != nil {
		return err
	}
	t.session.RemoveProduct(ctx, id)
	t.printCart()
	return nil
}

func (t *terminal) cmdQty(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "usage: qty <product_id> <n>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return common.ValidationError("usage: qty <product_id> <n>")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return common.ValidationError("qty must be an integer")
	}
	t.session.SetQuantity(ctx, id, n)
	t.printCart()
	return nil
}

func (t *terminal) cmdDiscount(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "usage: disc <product_id> <amount> [reason...]")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return common.ValidationError("usage: disc <product_id> <amount> [reason...]")
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return common.ValidationError("amount must be a number")
	}
	if err := t.session.SetItemDiscount(ctx, id, amount, strings.Join(args[2:], " ")); err != nil {
		return err
	}
	t.printCart()
	return nil
}

func (t *terminal) cmdCartDiscount(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return common.ValidationError("usage: cartdisc <amount> [code]")
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return common.ValidationError("amount must be a number")
	}
	if err := t.session.SetCartDiscount(ctx, amount, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	t.printCart()
	return nil
}

func (t *terminal) cmdCheckout(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return common.ValidationError("usage: checkout cash|credit | checkout split <cash> <credit>")
	}
	details := payment.Details{Method: payment.Method(args[0])}
	if details.Method == payment.MethodSplit {
		if len(args) < 3 {
			return common.ValidationError("usage: checkout split <cash> <credit>")
		}
		cash, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return common.ValidationError("cash amount must be a number")
		}
		credit, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return common.ValidationError("credit amount must be a number")
		}
		details.CashAmount = cash
		details.CreditAmount = credit
	}

	order, err := t.session.Checkout(ctx, details)
	if err != nil {
		return err
	}
	t.printf("order %s complete, total $%.2f\n", order.OrderNumber, order.Total)

	rcpt, err := t.session.Receipt(ctx, order.ID)
	if err != nil {
		t.printf("order saved but receipt fetch failed: %v\n", err)
		return nil
	}
	t.printf("%s", receipt.Render(rcpt, t.storeInfo()))
	return nil
}

func (t *terminal) cmdReceipt(ctx context.Context, args []string) error {
	id, err := argID(args, 0, "usage: receipt <order_id>")
	if err != nil {
		return err
	}
	rcpt, err := t.session.Receipt(ctx, id)
	if err != nil {
		return err
	}
	t.printf("%s", receipt.Render(rcpt, t.storeInfo()))
	return nil
}

func (t *terminal) cmdOrders(ctx context.Context, args []string) error {
	limit := 10
	if len(args) > 0 {
		if parsed, err := strconv.Atoi(args[0]); err == nil {
			limit = parsed
		}
	}
	orders, err := t.client.ListOrders(ctx, 0, limit)
	if err != nil {
		return err
	}
	for _, o := range orders {
		t.printf("#%d %s $%.2f %s\n", o.ID, o.OrderNumber, o.Total, o.CreatedAt.Local().Format("01/02 3:04 PM"))
	}
	return nil
}

func (t *terminal) cmdLookup(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return common.ValidationError("usage: lookup <order_number>")
	}
	sel, err := t.session.BeginReturn(ctx, args[0])
	if err != nil {
		return err
	}
	t.printf("return started for order %d:\n", sel.OrderID)
	t.printReturn()
	return nil
}

func (t *terminal) cmdReturnQty(args []string) error {
	id, err := argID(args, 0, "usage: retqty <order_item_id> <n>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return common.ValidationError("usage: retqty <order_item_id> <n>")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return common.ValidationError("qty must be an integer")
	}
	if err := t.session.SetReturnQuantity(id, n); err != nil {
		return err
	}
	t.printReturn()
	return nil
}

func (t *terminal) cmdDamaged(args []string) error {
	id, err := argID(args, 0, "usage: damaged <order_item_id> [off]")
	if err != nil {
		return err
	}
	damaged := !(len(args) > 1 && args[1] == "off")
	if err := t.session.SetReturnDamaged(id, damaged); err != nil {
		return err
	}
	t.printReturn()
	return nil
}

func (t *terminal) cmdReturnSubmit(ctx context.Context) error {
	result, err := t.session.SubmitReturn(ctx)
	if err != nil {
		return err
	}
	t.printf("refund of $%.2f processed via %s for order %s\n",
		result.RefundAmount, result.RefundMethod, result.OrderNumber)
	return nil
}

func (t *terminal) printProducts(products []api.Product) {
	if len(products) == 0 {
		t.printf("no products found\n")
		return
	}
	for _, p := range products {
		t.printf("#%d %-24s %-10s $%.2f on hand: %d\n", p.ID, p.Name, p.SKU, p.Price, p.OnHand)
	}
}

func (t *terminal) printCart() {
	lines := t.session.Lines()
	if len(lines) == 0 {
		t.printf("cart is empty\n")
		return
	}
	for _, line := range lines {
		t.printf("  #%d %-24s %d x $%.2f", line.ProductID, line.Name, line.Qty, line.UnitPrice)
		if line.Discount > 0 {
			t.printf(" -$%.2f", line.Discount)
		}
		t.printf("\n")
	}
	totals := t.session.Totals()
	if d := t.session.CartDiscount(); d > 0 {
		if code := t.session.CartDiscountCode(); code != "" {
			t.printf("  cart discount (%s): -$%.2f\n", code, d)
		} else {
			t.printf("  cart discount: -$%.2f\n", d)
		}
	}
	t.printf("  subtotal $%.2f  discounts $%.2f  tax $%.2f  total $%.2f\n",
		totals.Subtotal, totals.DiscountTotal, totals.Tax, totals.Total)
}

func (t *terminal) printReturn() {
	sel := t.session.ActiveReturn()
	if sel == nil {
		t.printf("no return in progress\n")
		return
	}
	for _, c := range sel.Candidates {
		flag := ""
		if c.Damaged {
			flag = " [damaged]"
		}
		t.printf("  item #%d %-24s bought %d, returning %d, refund $%.2f%s\n",
			c.OrderItemID, c.ProductName, c.OriginalQty, c.Requested, c.Refund(), flag)
	}
	t.printf("  total refund: $%.2f\n", t.session.ReturnTotal())
}

func (t *terminal) printError(err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case common.CodeValidation:
			t.printf("invalid: %s\n", appErr.Message)
		case common.CodeRemoteRejected:
			t.printf("rejected by backend: %s\n", appErr.Message)
			for _, line := range detailLines(appErr.Details) {
				t.printf("  - %s\n", line)
			}
		default:
			t.printf("error: %s\n", appErr.Message)
		}
		return
	}
	t.printf("error: %v\n", err)
}

// detailLines renders a structured server rejection as display lines.
func detailLines(details any) []string {
	var out []string
	switch v := details.(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, entry := range v {
			switch e := entry.(type) {
			case string:
				out = append(out, e)
			case map[string]any:
				if msg, ok := e["msg"].(string); ok {
					out = append(out, msg)
				}
			}
		}
	}
	return out
}

func (t *terminal) printHelp() {
	t.printf(`catalog:
  search <query>             fast SKU/barcode/name search
  products [search]          list catalog
  product <id>               show one product
  padd <sku> <price> <name>  create product
  pprice <id> <price>        update price
  pdel <id>                  delete product
  pstock <id> <delta> <why>  adjust on-hand stock
sale:
  add <id> [qty]             add product to cart
  rm <id>                    remove line
  qty <id> <n>               set line quantity (0 removes)
  disc <id> <amount> [why]   line discount
  cartdisc <amount> [code]   whole-order discount
  cart                       show cart
  clear                      empty the cart
  checkout cash|credit       finish sale
  checkout split <cash> <credit>
  receipt <order_id>         reprint a receipt
  orders [limit]             recent orders
returns:
  lookup <order_number>      start a return
  retqty <item_id> <n>       set quantity to return
  damaged <item_id> [off]    flag damaged (not restocked)
  reason <text>              refund reason
  retinfo                    show staged return
  retsubmit                  process refund
  retcancel                  abandon return
`)
}

func (t *terminal) storeInfo() receipt.StoreInfo {
	return receipt.StoreInfo{
		Name:    t.cfg.StoreName,
		Address: t.cfg.StoreAddress,
		Phone:   t.cfg.StorePhone,
	}
}

func (t *terminal) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(t.out, format, args...); err != nil {
		t.logger.Error().Err(err).Msg("write terminal output")
	}
}

func argID(args []string, idx int, usage string) (int64, error) {
	if len(args) <= idx {
		return 0, common.ValidationError(usage)
	}
	id, err := strconv.ParseInt(args[idx], 10, 64)
	if err != nil {
		return 0, common.ValidationError("id must be an integer")
	}
	return id, nil
}
