package gateway_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kalungi/estate-management/internal"
	"github.com/kalungi/estate-management/internal/gateway"
)

var _ = Describe("PayPalClient", func() {
	var (
		server     *httptest.Server
		client     *gateway.PayPalClient
		logger     *slog.Logger
		tokenCalls int
	)

	newClient := func(baseURL string) *gateway.PayPalClient {
		return gateway.NewPayPalClient(internal.PayPalConfig{
			BaseURL:   baseURL,
			ClientID:  "client-id",
			SecretKey: "client-secret",
			Currency:  "USD",
		}, 5*time.Second, logger)
	}

	// newProviderServer serves the oauth token endpoint plus a custom handler
	// for everything else.
	newProviderServer := func(handler http.HandlerFunc) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/oauth2/token" {
				tokenCalls++
				user, pass, ok := r.BasicAuth()
				Expect(ok).To(BeTrue())
				Expect(user).To(Equal("client-id"))
				Expect(pass).To(Equal("client-secret"))
				json.NewEncoder(w).Encode(map[string]interface{}{
					"access_token": "token-abc",
					"expires_in":   3600,
				})
				return
			}
			handler(w, r)
		}))
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		tokenCalls = 0
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	Describe("Initialize", func() {
		It("should create a CAPTURE order and return the approve link", func() {
			var captured map[string]interface{}
			server = newProviderServer(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v2/checkout/orders"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer token-abc"))
				Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())

				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"id":     "ORDER-99",
					"status": "CREATED",
					"links": []map[string]string{
						{"href": "https://api.paypal.example/self", "rel": "self"},
						{"href": "https://www.paypal.example/approve/ORDER-99", "rel": "approve"},
					},
				})
			})
			client = newClient(server.URL)

			result, err := client.Initialize(context.Background(), gateway.InitializeRequest{
				Amount:   2599,
				Currency: "USD",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Reference).To(Equal("ORDER-99"))
			Expect(result.PaymentLink).To(Equal("https://www.paypal.example/approve/ORDER-99"))

			Expect(captured["intent"]).To(Equal("CAPTURE"))
			units := captured["purchase_units"].([]interface{})
			amount := units[0].(map[string]interface{})["amount"].(map[string]interface{})
			Expect(amount["value"]).To(Equal("25.99"))
			Expect(amount["currency_code"]).To(Equal("USD"))
		})

		It("should reuse a cached access token across calls", func() {
			server = newProviderServer(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{"id": "ORDER-1", "status": "CREATED"})
			})
			client = newClient(server.URL)

			for i := 0; i < 3; i++ {
				_, err := client.Initialize(context.Background(), gateway.InitializeRequest{Amount: 100, Currency: "USD"})
				Expect(err).ToNot(HaveOccurred())
			}

			Expect(tokenCalls).To(Equal(1))
		})

		It("should wrap order creation failures as unavailable", func() {
			server = newProviderServer(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
			})
			client = newClient(server.URL)

			_, err := client.Initialize(context.Background(), gateway.InitializeRequest{Amount: 100, Currency: "USD"})

			Expect(err).To(MatchError(gateway.ErrProviderUnavailable))
		})
	})

	Describe("CaptureOrder", func() {
		It("should capture the order and return the raw payload", func() {
			server = newProviderServer(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v2/checkout/orders/ORDER-99/capture"))
				Expect(r.Method).To(Equal(http.MethodPost))
				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]string{"id": "ORDER-99", "status": "COMPLETED"})
			})
			client = newClient(server.URL)

			payload, err := client.CaptureOrder(context.Background(), "ORDER-99")

			Expect(err).ToNot(HaveOccurred())
			outcome, _ := client.ParseOutcome(payload)
			Expect(outcome).To(Equal(gateway.OutcomeConfirmed))
		})
	})

	Describe("VerifyWebhook", func() {
		It("should always reject: there is no signed webhook channel", func() {
			client = newClient("https://api.paypal.example")

			Expect(client.VerifyWebhook([]byte(`{}`), "anything")).To(MatchError(gateway.ErrBadSignature))
		})
	})

	Describe("ParseOutcome", func() {
		BeforeEach(func() {
			client = newClient("https://api.paypal.example")
		})

		It("should confirm COMPLETED captures", func() {
			outcome, _ := client.ParseOutcome([]byte(`{"status":"COMPLETED"}`))
			Expect(outcome).To(Equal(gateway.OutcomeConfirmed))
		})

		It("should reject DECLINED captures with a reason", func() {
			outcome, reason := client.ParseOutcome([]byte(`{"status":"DECLINED"}`))
			Expect(outcome).To(Equal(gateway.OutcomeRejected))
			Expect(reason).To(ContainSubstring("DECLINED"))
		})

		It("should report unknown for other statuses", func() {
			outcome, _ := client.ParseOutcome([]byte(`{"status":"PENDING"}`))
			Expect(outcome).To(Equal(gateway.OutcomeUnknown))
		})
	})
})
