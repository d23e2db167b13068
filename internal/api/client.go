package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Kwoolford/pos-terminal/internal/common"
	"github.com/Kwoolford/pos-terminal/internal/obs"
	"github.com/Kwoolford/pos-terminal/internal/resilience"
)

// Client talks to the POS backend. Read operations retry behind the circuit
// breaker; mutating operations are sent exactly once and rely on
// idempotency keys for safe resubmission by the operator.
type Client struct {
	baseURL  string
	token    string
	read     resilience.HTTPClient
	write    resilience.HTTPClient
	validate *validator.Validate
	logger   zerolog.Logger
	metrics  *obs.APIMetrics
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string

	HTTP    *http.Client
	Breaker *resilience.Breaker

	ReadMaxAttempts int
	ReadBackoffBase time.Duration
	Timeout         time.Duration

	Logger  zerolog.Logger
	Metrics *obs.APIMetrics
}

// New constructs a Client from the options, applying conservative defaults.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base URL is required")
	}
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	readAttempts := opts.ReadMaxAttempts
	if readAttempts <= 0 {
		readAttempts = 3
	}
	backoff := opts.ReadBackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(opts.Token),
		read: resilience.HTTPClient{
			Client:      httpClient,
			Breaker:     opts.Breaker,
			MaxAttempts: readAttempts,
			BaseBackoff: backoff,
			Jitter:      0.2,
			Timeout:     opts.Timeout,
		},
		write: resilience.HTTPClient{
			Client:      httpClient,
			Breaker:     opts.Breaker,
			MaxAttempts: 1,
			Timeout:     opts.Timeout,
		},
		validate: validator.New(),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}, nil
}

// SearchProducts runs the fast SKU/barcode/name search used by the register
// keypad.
func (c *Client) SearchProducts(ctx context.Context, q string, limit int) ([]Product, error) {
	if strings.TrimSpace(q) == "" {
		return nil, common.ValidationError("search query cannot be empty")
	}
	query := url.Values{"q": {strings.TrimSpace(q)}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out []Product
	if err := c.doJSON(ctx, c.read, "search_products", http.MethodGet, "/products/search", query, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProducts pages through the catalog with optional category and search
// filters.
func (c *Client) ListProducts(ctx context.Context, params ListProductsParams) ([]Product, error) {
	query := url.Values{}
	if params.Skip > 0 {
		query.Set("skip", strconv.Itoa(params.Skip))
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Category != "" {
		query.Set("category", params.Category)
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}
	var out []Product
	if err := c.doJSON(ctx, c.read, "list_products", http.MethodGet, "/products", query, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches one catalog record.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var out Product
	path := "/products/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, c.read, "get_product", http.MethodGet, path, nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct registers a new product.
func (c *Client) CreateProduct(ctx context.Context, in ProductCreate) (*Product, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, common.ValidationError(validationMessage(err))
	}
	var out Product
	if err := c.doJSON(ctx, c.write, "create_product", http.MethodPost, "/products", nil, in, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProduct applies a partial update to an existing product.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductUpdate) (*Product, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, common.ValidationError(validationMessage(err))
	}
	var out Product
	path := "/products/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, c.write, "update_product", http.MethodPatch, path, nil, in, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct removes a product from the catalog.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	path := "/products/" + strconv.FormatInt(id, 10)
	return c.doJSON(ctx, c.write, "delete_product", http.MethodDelete, path, nil, nil, nil, nil)
}

// AdjustStock applies a manual on-hand delta with an audit reason.
func (c *Client) AdjustStock(ctx context.Context, id int64, in StockAdjustment) (*Product, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, common.ValidationError(validationMessage(err))
	}
	var out Product
	path := "/products/" + strconv.FormatInt(id, 10) + "/adjust-stock"
	if err := c.doJSON(ctx, c.write, "adjust_stock", http.MethodPost, path, nil, in, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateCart asks the backend to confirm availability and recompute totals
// before checkout. The call does not mutate server state, so it retries like
// a read.
func (c *Client) ValidateCart(ctx context.Context, in CartValidationRequest) (*CartValidationResult, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, common.ValidationError(validationMessage(err))
	}
	var out CartValidationResult
	if err := c.doJSON(ctx, c.read, "validate_cart", http.MethodPost, "/cart/validate", nil, in, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder submits a checkout. The idempotency key lets the backend
// deduplicate a resubmission after an ambiguous failure.
func (c *Client) CreateOrder(ctx context.Context, in OrderCreate, idempotencyKey string) (*Order, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, common.ValidationError(validationMessage(err))
	}
	headers := idempotencyHeader(idempotencyKey)
	var out Order
	if err := c.doJSON(ctx, c.write, "create_order", http.MethodPost, "/orders", nil, in, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders pages through recent orders, newest first.
func (c *Client) ListOrders(ctx context.Context, skip, limit int) ([]Order, error) {
	query := url.Values{}
	if skip > 0 {
		query.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out []Order
	if err := c.doJSON(ctx, c.read, "list_orders", http.MethodGet, "/orders", query, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder fetches one order with its line items.
func (c *Client) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var out Order
	path := "/orders/" + strconv.FormatInt(id, 10)
	if err := c.doJSON(ctx, c.read, "get_order", http.MethodGet, path, nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReceipt renders the receipt data for a completed order. Receipt
// generation is idempotent server side, so it retries like a read.
func (c *Client) GetReceipt(ctx context.Context, orderID int64) (*Receipt, error) {
	var out Receipt
	path := "/orders/" + strconv.FormatInt(orderID, 10) + "/receipt"
	if err := c.doJSON(ctx, c.read, "get_receipt", http.MethodPost, path, nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LookupOrder finds an order by order or receipt number for a return.
func (c *Client) LookupOrder(ctx context.Context, search string) (*OrderLookup, error) {
	if strings.TrimSpace(search) == "" {
		return nil, common.ValidationError("order number cannot be empty")
	}
	query := url.Values{"search": {strings.TrimSpace(search)}}
	var out OrderLookup
	if err := c.doJSON(ctx, c.read, "lookup_order", http.MethodGet, "/returns/lookup", query, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessReturn submits a refund for the selected lines of an order.
func (c *Client) ProcessReturn(ctx context.Context, in ReturnCreate, idempotencyKey string) (*ReturnResult, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, common.ValidationError(validationMessage(err))
	}
	headers := idempotencyHeader(idempotencyKey)
	var out ReturnResult
	if err := c.doJSON(ctx, c.write, "process_return", http.MethodPost, "/returns", nil, in, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func idempotencyHeader(key string) map[string]string {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	return map[string]string{"Idempotency-Key": key}
}

func (c *Client) doJSON(ctx context.Context, cl resilience.HTTPClient, operation, method, path string, query url.Values, body any, headers map[string]string, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, cl, method, path, query, body, headers, out)
	outcome := "ok"
	if err != nil {
		outcome = "transport"
		if common.CodeOf(err) == common.CodeRemoteRejected {
			outcome = "rejected"
		}
	}
	c.metrics.Observe(operation, outcome, time.Since(start))
	evt := c.logger.Debug()
	if err != nil {
		evt = c.logger.Warn().Err(err)
	}
	evt.Str("operation", operation).
		Str("method", method).
		Str("path", path).
		Str("outcome", outcome).
		Dur("elapsed", time.Since(start)).
		Msg("backend_call")
	return err
}

func (c *Client) roundTrip(ctx context.Context, cl resilience.HTTPClient, method, path string, query url.Values, body any, headers map[string]string, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := cl.Do(ctx, req)
	if err != nil {
		return common.TransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeRemoteError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return common.TransportError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// decodeRemoteError turns an error response into a REMOTE_REJECTED AppError.
// The backend reports failures as {"detail": ...} where detail is a string
// or a structured validation list.
func decodeRemoteError(resp *http.Response) error {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	message := resp.Status
	var details any
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && len(body.Detail) > 0 {
		var text string
		if json.Unmarshal(body.Detail, &text) == nil {
			message = text
		} else {
			var structured any
			if json.Unmarshal(body.Detail, &structured) == nil {
				details = structured
				if summary := summarizeDetail(structured); summary != "" {
					message = summary
				}
			}
		}
	}
	return common.RemoteError(resp.StatusCode, message, details)
}

// summarizeDetail flattens a structured rejection into one line so the
// operator sees the server's wording without digging into Details. Handles
// the validation-list shape ([{loc, msg, type}, ...]) and plain lists.
func summarizeDetail(detail any) string {
	switch v := detail.(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, entry := range v {
			switch e := entry.(type) {
			case string:
				parts = append(parts, e)
			case map[string]any:
				if msg, ok := e["msg"].(string); ok {
					parts = append(parts, msg)
				}
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		if msg, ok := v["msg"].(string); ok {
			return msg
		}
	}
	return ""
}

// validationMessage flattens a validator error into a single operator-facing
// line.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}
