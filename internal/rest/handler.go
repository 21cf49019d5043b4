package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	catalogapp "github.com/dominus-shop/order-engine/internal/catalog/app"
	orderapp "github.com/dominus-shop/order-engine/internal/order/app"
	"github.com/dominus-shop/order-engine/internal/order/domain"
	"github.com/dominus-shop/order-engine/pkg/metrics"
)

// Handler exposes the order engine over HTTP. Caller identity arrives in
// the X-User-ID header; token verification and the admin role check belong
// to the gateway in front of this service.
type Handler struct {
	orders  *orderapp.Service
	catalog *catalogapp.Service
	log     *slog.Logger
	m       *metrics.Metrics
}

func New(orders *orderapp.Service, catalog *catalogapp.Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Handler{orders: orders, catalog: catalog, log: log, m: m}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", h.m.Handler())

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/", h.myOrders)
		r.Get("/products/{productID}", h.ordersByProduct)
		r.Post("/{orderID}/cancel", h.cancelOrder)
	})

	r.Post("/payments/verify", h.verifyPayment)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/orders", h.adminOrders)
		r.Patch("/orders/{orderID}/status", h.adminUpdateStatus)
		r.Post("/products/{productID}/stock", h.adminAddStock)
	})

	return r
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		h.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		h.m.HTTPLatency.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

type orderItemPayload struct {
	ProductID string `json:"productId"`
	ColorID   string `json:"colorId"`
	Quantity  int32  `json:"quantity"`
}

type createOrderRequest struct {
	Items []orderItemPayload `json:"items"`
}

type orderItemResponse struct {
	ProductID string `json:"productId"`
	ColorID   string `json:"colorId"`
	Quantity  int32  `json:"quantity"`
	Price     int64  `json:"price"`
}

type orderResponse struct {
	OrderID         string              `json:"orderId"`
	OrderDate       time.Time           `json:"orderDate"`
	Status          string              `json:"status"`
	TotalAmount     int64               `json:"totalAmount"`
	ShippingAddress string              `json:"shippingAddress"`
	RazorOrderID    string              `json:"razorOrderId,omitempty"`
	RazorKey        string              `json:"razorKey,omitempty"`
	PaidOn          *time.Time          `json:"paidOn,omitempty"`
	Items           []orderItemResponse `json:"items"`
}

func toOrderResponse(o domain.Order, gatewayKey string) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: it.ProductID,
			ColorID:   it.ColorID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	return orderResponse{
		OrderID:         o.ID,
		OrderDate:       o.OrderDate,
		Status:          o.Status.String(),
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		RazorOrderID:    o.ExternalOrderID,
		RazorKey:        gatewayKey,
		PaidOn:          o.PaidOn,
		Items:           items,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "malformed request body")
		return
	}

	items := make([]orderapp.CreateOrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orderapp.CreateOrderItem{
			ProductID: it.ProductID,
			ColorID:   it.ColorID,
			Quantity:  it.Quantity,
		})
	}

	res, err := h.orders.CreateOrder(r.Context(), userID, items)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrderResponse(res.Order, res.GatewayKey))
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.MyOrders(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.orderList(orders))
}

func (h *Handler) ordersByProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.OrdersByProduct(r.Context(), userID, chi.URLParam(r, "productID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.orderList(orders))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.orders.CancelOrder(r.Context(), userID, chi.URLParam(r, "orderID")); err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "order cancelled"})
}

type verifyPaymentRequest struct {
	OrderID        string `json:"orderId"`
	RazorOrderID   string `json:"razorpay_order_id"`
	RazorPaymentID string `json:"razorpay_payment_id"`
	RazorSignature string `json:"razorpay_signature"`
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "malformed request body")
		return
	}

	err := h.orders.VerifyPayment(r.Context(), userID, orderapp.VerifyPaymentRequest{
		OrderID:         req.OrderID,
		ExternalOrderID: req.RazorOrderID,
		PaymentID:       req.RazorPaymentID,
		Signature:       req.RazorSignature,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "payment verified"})
}

type adminStatusRequest struct {
	Status int `json:"status"`
}

func (h *Handler) adminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req adminStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "malformed request body")
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.orders.AdminUpdateStatus(r.Context(), chi.URLParam(r, "orderID"), status); err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "status updated"})
}

func (h *Handler) adminOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	var status *domain.Status
	if raw := q.Get("status"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "status must be numeric")
			return
		}
		s, err := domain.ParseStatus(n)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		status = &s
	}

	result, err := h.orders.AdminOrders(r.Context(), page, pageSize, status)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"page":       result.Page,
		"pageSize":   result.PageSize,
		"totalCount": result.TotalCount,
		"items":      h.orderList(result.Orders),
	})
}

type addStockRequest struct {
	Quantity int32 `json:"quantity"`
}

func (h *Handler) adminAddStock(w http.ResponseWriter, r *http.Request) {
	var req addStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "malformed request body")
		return
	}

	p, err := h.catalog.AddStock(r.Context(), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"productId":    p.ID,
		"currentStock": p.CurrentStock,
		"inStock":      p.InStock,
	})
}

func (h *Handler) orderList(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o, ""))
	}
	return out
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing user identity")
		return "", false
	}
	return userID, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFromError(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			slog.String("path", r.URL.Path), slog.Any("err", err))
		h.writeError(w, r, status, code, "internal error")
		return
	}
	h.writeError(w, r, status, code, err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, _ *http.Request, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("write response", slog.Any("err", err))
	}
}
