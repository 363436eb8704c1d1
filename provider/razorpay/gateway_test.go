package razorpay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const (
	testKeyID         = "rzp_test_1234567890"
	testKeySecret     = "secret_key_123"
	testWebhookSecret = "whsec_test_secret"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeGateway is an in-memory stand-in for the orders, payments and refunds endpoints
type fakeGateway struct {
	mu            sync.Mutex
	orders        map[string]*Order
	payments      map[string]*Payment
	orderPayments map[string][]string
	requests      []recordedRequest
	fail          map[string]int
	nextID        int
	server        *httptest.Server
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()

	g := &fakeGateway{
		orders:        make(map[string]*Order),
		payments:      make(map[string]*Payment),
		orderPayments: make(map[string][]string),
		fail:          make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", g.createOrder)
	mux.HandleFunc("GET /orders/{id}", g.fetchOrder)
	mux.HandleFunc("GET /orders/{id}/payments", g.fetchOrderPayments)
	mux.HandleFunc("GET /payments/{id}", g.fetchPayment)
	mux.HandleFunc("POST /payments/{id}/capture", g.capturePayment)
	mux.HandleFunc("POST /payments/{id}/refund", g.refundPayment)

	g.server = httptest.NewServer(g.middleware(mux))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGateway) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testKeyID || pass != testKeySecret {
			writeGatewayError(w, http.StatusUnauthorized, "BAD_REQUEST_ERROR", "Authentication failed", "")
			return
		}

		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		g.mu.Lock()
		g.requests = append(g.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		status, failing := g.fail[r.Method+" "+r.URL.Path]
		g.mu.Unlock()

		if failing {
			writeGatewayError(w, status, "SERVER_ERROR", "Simulated failure", "")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyKey{}, body)))
	})
}

type bodyKey struct{}

func requestBody(r *http.Request) map[string]any {
	if body, ok := r.Context().Value(bodyKey{}).(map[string]any); ok && body != nil {
		return body
	}
	return map[string]any{}
}

func writeGatewayError(w http.ResponseWriter, status int, code, description, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":        code,
			"description": description,
			"field":       field,
			"reason":      "input_validation_failed",
		},
	})
}

func writeGatewayJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (g *fakeGateway) id(prefix string) string {
	g.nextID++
	return fmt.Sprintf("%s_%06d", prefix, g.nextID)
}

func (g *fakeGateway) createOrder(w http.ResponseWriter, r *http.Request) {
	body := requestBody(r)

	g.mu.Lock()
	defer g.mu.Unlock()

	amount, _ := int64Value(body["amount"])
	order := &Order{
		ID:        g.id("order"),
		Entity:    "order",
		Amount:    amount,
		AmountDue: amount,
		Currency:  fmt.Sprint(body["currency"]),
		Status:    OrderCreated,
		CreatedAt: 1700000000,
	}
	if receipt, ok := body["receipt"].(string); ok {
		order.Receipt = receipt
	}
	if notes, ok := body["notes"].(map[string]any); ok {
		order.Notes = Notes{}
		for k, v := range notes {
			order.Notes[k] = fmt.Sprint(v)
		}
	}
	g.orders[order.ID] = order

	writeGatewayJSON(w, order)
}

func (g *fakeGateway) fetchOrder(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	order, ok := g.orders[r.PathValue("id")]
	g.mu.Unlock()

	if !ok {
		writeGatewayError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "The id provided does not exist", "id")
		return
	}
	writeGatewayJSON(w, order)
}

func (g *fakeGateway) fetchOrderPayments(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	items := []*Payment{}
	for _, id := range g.orderPayments[r.PathValue("id")] {
		items = append(items, g.payments[id])
	}
	writeGatewayJSON(w, map[string]any{"entity": "collection", "count": len(items), "items": items})
}

func (g *fakeGateway) fetchPayment(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	payment, ok := g.payments[r.PathValue("id")]
	g.mu.Unlock()

	if !ok {
		writeGatewayError(w, http.StatusNotFound, "BAD_REQUEST_ERROR", "The id provided does not exist", "id")
		return
	}
	writeGatewayJSON(w, payment)
}

func (g *fakeGateway) capturePayment(w http.ResponseWriter, r *http.Request) {
	body := requestBody(r)

	g.mu.Lock()
	defer g.mu.Unlock()

	payment, ok := g.payments[r.PathValue("id")]
	if !ok {
		writeGatewayError(w, http.StatusNotFound, "BAD_REQUEST_ERROR", "The id provided does not exist", "id")
		return
	}
	if payment.Status != PaymentAuthorized {
		writeGatewayError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "This payment has already been captured", "")
		return
	}
	if amount, _ := int64Value(body["amount"]); amount != payment.Amount {
		writeGatewayError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "Capture amount must be equal to the amount authorized", "amount")
		return
	}

	payment.Status = PaymentCaptured
	payment.Captured = true
	writeGatewayJSON(w, payment)
}

func (g *fakeGateway) refundPayment(w http.ResponseWriter, r *http.Request) {
	body := requestBody(r)

	g.mu.Lock()
	defer g.mu.Unlock()

	payment, ok := g.payments[r.PathValue("id")]
	if !ok {
		writeGatewayError(w, http.StatusNotFound, "BAD_REQUEST_ERROR", "The id provided does not exist", "id")
		return
	}

	amount, _ := int64Value(body["amount"])
	if amount > payment.Amount-payment.AmountRefunded {
		writeGatewayError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "The refund amount provided is greater than amount captured", "amount")
		return
	}
	payment.AmountRefunded += amount

	writeGatewayJSON(w, &Refund{
		ID:        g.id("rfnd"),
		Entity:    "refund",
		Amount:    amount,
		Currency:  payment.Currency,
		PaymentID: payment.ID,
		Status:    "processed",
		CreatedAt: 1700000100,
	})
}

// addPayment attaches a payment in the given state to an order
func (g *fakeGateway) addPayment(orderID, status string, amount int64) *Payment {
	g.mu.Lock()
	defer g.mu.Unlock()

	payment := &Payment{
		ID:       g.id("pay"),
		Entity:   "payment",
		Amount:   amount,
		Currency: "INR",
		Status:   status,
		OrderID:  orderID,
		Method:   "card",
		Captured: status == PaymentCaptured,
	}
	g.payments[payment.ID] = payment
	g.orderPayments[orderID] = append(g.orderPayments[orderID], payment.ID)
	return payment
}

func (g *fakeGateway) setOrderStatus(orderID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[orderID].Status = status
}

func (g *fakeGateway) failOn(method, path string, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[method+" "+path] = status
}

func (g *fakeGateway) lastRequest() recordedRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

func (g *fakeGateway) countRequests(method, path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}
