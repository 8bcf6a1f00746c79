package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carplace-code/carplace-sub001/database"
)

func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	DB = &database.DB{DB: db}
	database.Database = DB
	return mock
}

func newListingsRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	listings := router.Group("/api/v1/car_listings")
	listings.POST("/", CreateCarListing)
	listings.GET("/", GetCarListings)
	listings.DELETE("/delete_duplicates", DeleteDuplicateListings)
	return router
}

func validIngestBody() map[string]interface{} {
	return map[string]interface{}{
		"brand":         "Toyota",
		"model":         "Corolla",
		"year":          2019,
		"km":            50000.0,
		"transmission":  "Manual",
		"priceActual":   8500000.0,
		"priceOriginal": 9000000.0,
		"location":      "Santiago",
		"fuelType":      "Gas",
		"postUrl":       "https://www.yapo.cl/corolla-123",
		"imgUrl":        "https://img.yapo.cl/corolla.jpg",
		"dataSource":    "yapo",
	}
}

func postIngest(t *testing.T, router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/car_listings/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func validRequest() ingestRequest {
	return ingestRequest{
		Brand:         "Toyota",
		Model:         "Corolla",
		Year:          intPtr(2019),
		Km:            floatPtr(50000),
		Transmission:  strPtr("manual"),
		PriceActual:   floatPtr(8500000),
		PriceOriginal: floatPtr(9000000),
		Location:      "Santiago",
		FuelType:      strPtr("gas"),
		PostURL:       "https://www.yapo.cl/corolla-123",
		DataSource:    "yapo",
	}
}

func TestIngestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *ingestRequest)
		wantMsg string
	}{
		{"valid", func(r *ingestRequest) {}, ""},
		{"missing brand", func(r *ingestRequest) { r.Brand = "" }, "missing required fields"},
		{"missing year", func(r *ingestRequest) { r.Year = nil }, "missing required fields"},
		{"missing price", func(r *ingestRequest) { r.PriceActual = nil }, "missing required fields"},
		{"zero price", func(r *ingestRequest) { r.PriceActual = floatPtr(0) }, "missing required fields"},
		{"zero year", func(r *ingestRequest) { r.Year = intPtr(0) }, "missing required fields"},
		{"missing location", func(r *ingestRequest) { r.Location = "" }, "missing required fields"},
		{"missing km", func(r *ingestRequest) { r.Km = nil }, "invalid numeric type"},
		{"missing original price", func(r *ingestRequest) { r.PriceOriginal = nil }, "invalid numeric type"},
		{"negative price", func(r *ingestRequest) { r.PriceActual = floatPtr(-1) }, "negative price"},
		{"negative original price", func(r *ingestRequest) { r.PriceOriginal = floatPtr(-1) }, "negative price"},
		{"negative mileage", func(r *ingestRequest) { r.Km = floatPtr(-1) }, "negative mileage"},
		{"year before the automobile", func(r *ingestRequest) { r.Year = intPtr(1885) }, "invalid year"},
		{"first possible year", func(r *ingestRequest) { r.Year = intPtr(1886) }, ""},
		{"missing fuelType", func(r *ingestRequest) { r.FuelType = nil }, "invalid fuelType type"},
		{"missing transmission", func(r *ingestRequest) { r.Transmission = nil }, "invalid transmission type"},
		{"unknown fuelType", func(r *ingestRequest) { r.FuelType = strPtr("steam") }, "invalid fuelType"},
		{"unknown transmission", func(r *ingestRequest) { r.Transmission = strPtr("cvt-ish") }, "invalid transmission"},
		{"uppercase enums accepted", func(r *ingestRequest) {
			r.FuelType = strPtr("GAS")
			r.Transmission = strPtr("AUTOMATIC")
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			assert.Equal(t, tt.wantMsg, req.validate())
		})
	}
}

func TestIngestValidationNormalizesEnums(t *testing.T) {
	req := validRequest()
	req.FuelType = strPtr("GAS")
	req.Transmission = strPtr("AUTOMATIC")

	require.Empty(t, req.validate())
	assert.Equal(t, "gas", *req.FuelType)
	assert.Equal(t, "automatic", *req.Transmission)
}

func TestIngestTrimNameFallback(t *testing.T) {
	req := validRequest()
	assert.Equal(t, "Toyota-Corolla-2019", req.trimName())

	req.Version = "XLE 1.8"
	assert.Equal(t, "XLE 1.8", req.trimName())
}

func TestIngestRejectsWrongJSONTypes(t *testing.T) {
	newMockDB(t)
	router := newListingsRouter()

	tests := []struct {
		name    string
		mutate  func(m map[string]interface{})
		wantMsg string
	}{
		{"string price", func(m map[string]interface{}) { m["priceActual"] = "8500000" }, "invalid numeric type"},
		{"string year", func(m map[string]interface{}) { m["year"] = "2019" }, "invalid numeric type"},
		{"string km", func(m map[string]interface{}) { m["km"] = "lots" }, "invalid numeric type"},
		{"absent km", func(m map[string]interface{}) { delete(m, "km") }, "invalid numeric type"},
		{"absent priceOriginal", func(m map[string]interface{}) { delete(m, "priceOriginal") }, "invalid numeric type"},
		{"numeric fuelType", func(m map[string]interface{}) { m["fuelType"] = 95 }, "invalid fuelType type"},
		{"numeric transmission", func(m map[string]interface{}) { m["transmission"] = 1 }, "invalid transmission type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validIngestBody()
			tt.mutate(body)
			w := postIngest(t, router, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMsg)
		})
	}
}

func TestIngestRejectsMalformedBody(t *testing.T) {
	newMockDB(t)
	router := newListingsRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/car_listings/", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or missing JSON body")
}

func TestIngestRejectsUnknownSource(t *testing.T) {
	mock := newMockDB(t)
	router := newListingsRouter()

	body := validIngestBody()
	body["dataSource"] = "unknown_site"
	w := postIngest(t, router, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid source")
	// Rejection happens before any persistence call, so nothing dangles.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func taxonomyFound(mock sqlmock.Sqlmock) {
	for _, table := range []string{"sources", "brands", "car_models", "versions", "trims"} {
		mock.ExpectQuery("SELECT id FROM " + table).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	}
}

func TestIngestCreatesNewListing(t *testing.T) {
	mock := newMockDB(t)
	router := newListingsRouter()

	mock.ExpectBegin()
	for _, table := range []string{"sources", "brands", "car_models", "versions", "trims"} {
		mock.ExpectQuery("SELECT id FROM " + table).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("INSERT INTO " + table).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	}
	mock.ExpectQuery("SELECT id, price, mileage, location, published_at").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO sellers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO car_listings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("INSERT INTO price_history").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO images").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := postIngest(t, router, validIngestBody())

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "newListing")
	assert.Contains(t, w.Body.String(), "Toyota Corolla 2019")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestUnchangedListing(t *testing.T) {
	mock := newMockDB(t)
	router := newListingsRouter()

	mock.ExpectBegin()
	taxonomyFound(mock)
	mock.ExpectQuery("SELECT id, price, mileage, location, published_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "mileage", "location", "published_at"}).
			AddRow(int64(7), 8500000.0, 50000.0, "Santiago", time.Now()))
	mock.ExpectCommit()

	w := postIngest(t, router, validIngestBody())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Listing unchanged")
	// No update, no price history append.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestPriceChangeAppendsHistory(t *testing.T) {
	mock := newMockDB(t)
	router := newListingsRouter()

	mock.ExpectBegin()
	taxonomyFound(mock)
	mock.ExpectQuery("SELECT id, price, mileage, location, published_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "mileage", "location", "published_at"}).
			AddRow(int64(7), 8000000.0, 50000.0, "Santiago", time.Now()))
	mock.ExpectExec("UPDATE car_listings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO price_history").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	w := postIngest(t, router, validIngestBody())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "updatedListing")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestMileageChangeWithoutPriceChange(t *testing.T) {
	mock := newMockDB(t)
	router := newListingsRouter()

	mock.ExpectBegin()
	taxonomyFound(mock)
	mock.ExpectQuery("SELECT id, price, mileage, location, published_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "mileage", "location", "published_at"}).
			AddRow(int64(7), 8500000.0, 42000.0, "Santiago", time.Now()))
	mock.ExpectExec("UPDATE car_listings").WillReturnResult(sqlmock.NewResult(0, 1))
	// Same price: the listing row is updated but no history point is added.
	mock.ExpectCommit()

	w := postIngest(t, router, validIngestBody())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "updatedListing")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestUpdateKeepsStoredPublishedAt(t *testing.T) {
	mock := newMockDB(t)
	router := newListingsRouter()

	published := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	taxonomyFound(mock)
	mock.ExpectQuery("SELECT id, price, mileage, location, published_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "mileage", "location", "published_at"}).
			AddRow(int64(7), 8000000.0, 50000.0, "Santiago", published))
	// The body carries no publishedAt, so the stored date survives the update.
	mock.ExpectExec("UPDATE car_listings").
		WithArgs(8500000.0, 50000.0, "Santiago", published, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO price_history").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	w := postIngest(t, router, validIngestBody())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "updatedListing")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseTimestamp(t *testing.T) {
	fallback := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	parsed := parseTimestamp("2024-05-30T10:00:00Z", fallback)
	assert.Equal(t, time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC), parsed)

	assert.Equal(t, fallback, parseTimestamp("", fallback))
	assert.Equal(t, fallback, parseTimestamp("yesterday", fallback))
}
