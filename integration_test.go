package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"campus-market/internal/config"
	"campus-market/internal/server"
	"campus-market/migrations"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type IntegrationTestSuite struct {
	suite.Suite
	postgresContainer testcontainers.Container
	serverInstance    *server.Server
	serverPort        string
	baseURL           string
	client            *http.Client
	dbConnStr         string
	dbPort            string

	tokens   map[string]string
	products map[string]string
	orders   map[string]string
}

func (suite *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	// Start PostgreSQL container with explicit configuration
	containerReq := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "campus_market",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: containerReq,
		Started:          true,
	})
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %s", err)
	}
	suite.postgresContainer = postgresContainer

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		suite.T().Fatalf("Failed to get container host: %s", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		suite.T().Fatalf("Failed to get mapped port: %s", err)
	}
	suite.dbPort = port.Port()

	suite.dbConnStr = fmt.Sprintf("host=%s port=%s user=postgres password=password dbname=campus_market sslmode=disable",
		host, port.Port())

	if err := suite.runMigrations(); err != nil {
		suite.T().Fatalf("Failed to run migrations: %s", err)
	}

	if err := suite.startApplicationServer(); err != nil {
		suite.T().Fatalf("Failed to start application server: %s", err)
	}

	suite.client = &http.Client{
		Timeout: 30 * time.Second,
	}
	suite.tokens = map[string]string{}
	suite.products = map[string]string{}
	suite.orders = map[string]string{}
}

func (suite *IntegrationTestSuite) runMigrations() error {
	db, err := sql.Open("postgres", suite.dbConnStr)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrations.Apply(context.Background(), db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (suite *IntegrationTestSuite) startApplicationServer() error {
	// The server migrates again on start; the scripts are idempotent.
	cfg := &config.Config{
		DBHost:          "localhost",
		DBPort:          suite.dbPort,
		DBUser:          "postgres",
		DBPassword:      "password",
		DBName:          "campus_market",
		DBSSLMode:       "disable",
		ServerPort:      "0", // Let OS choose a free port
		StorageDriver:   config.StorageDriverPostgres,
		AutoMigrate:     true,
		JWTSecret:       "integration-secret",
		JWTIssuer:       "campus-market",
		TokenTTL:        time.Hour,
		BcryptCost:      4,
		DefaultPageSize: 10,
		MaxPageSize:     100,
		ImageBaseURL:    "/uploads/",
		ShutdownTimeout: 5 * time.Second,
	}

	serverInstance, port, err := server.StartServer(cfg)
	if err != nil {
		return err
	}

	suite.serverInstance = serverInstance
	suite.serverPort = port
	suite.baseURL = "http://localhost:" + port

	return suite.waitForServerReady()
}

func (suite *IntegrationTestSuite) waitForServerReady() error {
	timeout := 30 * time.Second
	start := time.Now()

	for time.Since(start) < timeout {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if suite.serverInstance != nil {
		suite.serverInstance.Stop(ctx)
	}

	if suite.postgresContainer != nil {
		suite.postgresContainer.Terminate(ctx)
	}
}

// call sends a JSON request as the named user ("" for anonymous) and returns
// the status code and decoded envelope.
func (suite *IntegrationTestSuite) call(method, path, user string, payload interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if payload != nil {
		body, _ := json.Marshal(payload)
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, suite.baseURL+path, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token := suite.tokens[user]; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	suite.T().Logf("%s %s -> %d %s", method, path, resp.StatusCode, respBody)

	var response map[string]interface{}
	if err := json.Unmarshal(respBody, &response); err != nil {
		suite.T().Logf("Failed to parse response: %s", respBody)
	}
	return resp.StatusCode, response
}

func data(response map[string]interface{}) map[string]interface{} {
	d, _ := response["data"].(map[string]interface{})
	return d
}

func errorCode(response map[string]interface{}) string {
	e, _ := response["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

// Helper to compare decimal values properly
func (suite *IntegrationTestSuite) assertDecimalEqual(expected string, actual interface{}) {
	actualStr, ok := actual.(string)
	if !ok {
		suite.T().Fatalf("Expected a decimal string, got %v", actual)
	}

	expectedDec := decimal.RequireFromString(expected)
	actualDec, err := decimal.NewFromString(actualStr)
	if err != nil {
		suite.T().Fatalf("Invalid actual decimal: %s", actualStr)
	}

	assert.True(suite.T(), expectedDec.Equal(actualDec),
		"Decimal values not equal: expected %s, got %s", expected, actualStr)
}

func (suite *IntegrationTestSuite) register(username, phone, card string) {
	status, response := suite.call("POST", "/api/auth/register", "", map[string]string{
		"username":    username,
		"password":    "secret123",
		"phone":       phone,
		"campus_card": card,
	})
	suite.Require().Equal(http.StatusCreated, status, errorCode(response))

	status, response = suite.call("POST", "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "secret123",
	})
	suite.Require().Equal(http.StatusOK, status)
	suite.tokens[username] = data(response)["token"].(string)
}

func (suite *IntegrationTestSuite) listProduct(key, seller, name, price string) {
	status, response := suite.call("POST", "/api/products", seller, map[string]interface{}{
		"name":        name,
		"price":       price,
		"category_id": 1,
	})
	suite.Require().Equal(http.StatusCreated, status, errorCode(response))
	suite.products[key] = data(response)["product_id"].(string)
}

func (suite *IntegrationTestSuite) productStatus(key string) string {
	status, response := suite.call("GET", "/api/products/"+suite.products[key], "", nil)
	suite.Require().Equal(http.StatusOK, status)
	return data(response)["status_label"].(string)
}

// ------------------------------------------------------------------
// Steps below are helpers (non-test methods). They will be executed
// in the order invoked by TestFlow. This allows deterministic ordering
// without relying on test function name prefixes.
// ------------------------------------------------------------------

func (suite *IntegrationTestSuite) stepHealthCheck() {
	resp, err := suite.client.Get(suite.baseURL + "/health")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var healthResp map[string]interface{}
	err = json.Unmarshal(body, &healthResp)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "healthy", healthResp["status"])
}

func (suite *IntegrationTestSuite) stepRegisterUsers() {
	suite.register("seller", "13800000001", "S0001")
	suite.register("buyer", "13800000002", "B0001")
	suite.register("rival", "13800000003", "R0001")

	status, response := suite.call("POST", "/api/auth/register", "", map[string]string{
		"username":    "copycat",
		"password":    "secret123",
		"phone":       "13800000001",
		"campus_card": "C0001",
	})
	assert.Equal(suite.T(), http.StatusConflict, status)
	assert.Equal(suite.T(), "duplicate_phone", errorCode(response))
}

// A listed product ordered by a buyer becomes unavailable and the pending
// transaction carries the listing price.
func (suite *IntegrationTestSuite) stepPlaceOrder() {
	suite.listProduct("calculator", "seller", "Calculator", "45.00")

	status, response := suite.call("POST", "/api/transactions", "buyer", map[string]string{
		"product_id": suite.products["calculator"],
	})
	suite.Require().Equal(http.StatusCreated, status)

	order := data(response)
	suite.orders["calculator"] = order["transaction_id"].(string)
	assert.Equal(suite.T(), "pending", order["status_label"])
	suite.assertDecimalEqual("45.00", order["amount"])
	assert.Equal(suite.T(), "unavailable", suite.productStatus("calculator"))

	status, response = suite.call("POST", "/api/transactions", "rival", map[string]string{
		"product_id": suite.products["calculator"],
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, status)
	assert.Equal(suite.T(), "not_purchasable", errorCode(response))
}

func (suite *IntegrationTestSuite) stepPriceEditKeepsAmount() {
	status, _ := suite.call("PUT", "/api/products/"+suite.products["calculator"], "seller", map[string]interface{}{
		"price": "99.00",
	})
	suite.Require().Equal(http.StatusOK, status)

	status, response := suite.call("GET", "/api/transactions/"+suite.orders["calculator"], "buyer", nil)
	suite.Require().Equal(http.StatusOK, status)
	suite.assertDecimalEqual("45.00", data(response)["amount"])
}

func (suite *IntegrationTestSuite) stepPay() {
	path := "/api/transactions/" + suite.orders["calculator"] + "/pay"

	status, response := suite.call("PUT", path, "rival", nil)
	assert.Equal(suite.T(), http.StatusForbidden, status)
	assert.Equal(suite.T(), "not_authorized", errorCode(response))

	status, response = suite.call("PUT", path, "buyer", nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Equal(suite.T(), "paid", data(response)["status_label"])
	suite.assertDecimalEqual("45.00", data(response)["amount"])
	assert.Equal(suite.T(), "sold", suite.productStatus("calculator"))

	status, response = suite.call("PUT", path, "buyer", nil)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, status)
	assert.Equal(suite.T(), "invalid_transaction_state", errorCode(response))
}

func (suite *IntegrationTestSuite) stepSelfPurchase() {
	suite.listProduct("lamp", "seller", "Desk lamp", "12.00")

	status, response := suite.call("POST", "/api/transactions", "seller", map[string]string{
		"product_id": suite.products["lamp"],
	})
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	assert.Equal(suite.T(), "self_purchase", errorCode(response))
	assert.Equal(suite.T(), "listed", suite.productStatus("lamp"))
}

// Many buyers race for one product; exactly one order is created and the
// losers see a conflict or a product that is no longer purchasable.
func (suite *IntegrationTestSuite) stepConcurrentOrders() {
	suite.listProduct("bike", "seller", "Bicycle", "300.00")

	buyers := []string{"buyer", "rival"}
	for i := 0; i < 6; i++ {
		name := fmt.Sprintf("racer%d", i)
		suite.register(name, fmt.Sprintf("1390000000%d", i), fmt.Sprintf("RC%d", i))
		buyers = append(buyers, name)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	statuses := map[int]int{}

	for _, buyer := range buyers {
		wg.Add(1)
		go func(buyer string) {
			defer wg.Done()
			status, _ := suite.call("POST", "/api/transactions", buyer, map[string]string{
				"product_id": suite.products["bike"],
			})
			mu.Lock()
			statuses[status]++
			mu.Unlock()
		}(buyer)
	}
	wg.Wait()

	assert.Equal(suite.T(), 1, statuses[http.StatusCreated], "statuses: %v", statuses)
	assert.Equal(suite.T(), len(buyers)-1, statuses[http.StatusConflict]+statuses[http.StatusUnprocessableEntity],
		"statuses: %v", statuses)
	assert.Equal(suite.T(), "unavailable", suite.productStatus("bike"))
}

func (suite *IntegrationTestSuite) stepWithdrawAfterCancel() {
	suite.listProduct("kettle", "seller", "Kettle", "20.00")

	status, response := suite.call("POST", "/api/transactions", "buyer", map[string]string{
		"product_id": suite.products["kettle"],
	})
	suite.Require().Equal(http.StatusCreated, status)
	orderID := data(response)["transaction_id"].(string)

	status, _ = suite.call("PUT", "/api/transactions/"+orderID+"/cancel", "buyer", nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Equal(suite.T(), "listed", suite.productStatus("kettle"))

	status, response = suite.call("DELETE", "/api/products/"+suite.products["kettle"], "seller", nil)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, status)
	assert.Equal(suite.T(), "already_transacted", errorCode(response))

	status, response = suite.call("DELETE", "/api/products/"+suite.products["lamp"], "seller", nil)
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.Equal(suite.T(), "withdrawn", data(response)["status_label"])
}

func (suite *IntegrationTestSuite) stepCatalogAndHistory() {
	status, response := suite.call("GET", "/api/products/available?keyword=KETTLE", "buyer", nil)
	suite.Require().Equal(http.StatusOK, status)
	page := data(response)
	assert.Equal(suite.T(), float64(1), page["total"])

	status, response = suite.call("GET", "/api/products/available", "seller", nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Equal(suite.T(), float64(0), data(response)["total"])

	status, response = suite.call("GET", "/api/transactions/my?status=1", "buyer", nil)
	suite.Require().Equal(http.StatusOK, status)
	history := data(response)
	assert.Equal(suite.T(), float64(1), history["total"])

	items := history["items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(suite.T(), "seller", first["counterparty_username"])
	assert.Equal(suite.T(), "seller", first["counterparty_role"])
	assert.Equal(suite.T(), "Books", first["category_name"])

	status, response = suite.call("GET", "/api/transactions/"+suite.orders["calculator"], "rival", nil)
	assert.Equal(suite.T(), http.StatusForbidden, status)
	assert.Equal(suite.T(), "not_authorized", errorCode(response))
}

func (suite *IntegrationTestSuite) TestFlow() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test in short mode")
	}

	suite.stepHealthCheck()
	suite.stepRegisterUsers()
	suite.stepPlaceOrder()
	suite.stepPriceEditKeepsAmount()
	suite.stepPay()
	suite.stepSelfPurchase()
	suite.stepConcurrentOrders()
	suite.stepWithdrawAfterCancel()
	suite.stepCatalogAndHistory()
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
