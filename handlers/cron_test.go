package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Carplace-code/carplace-sub001/config"
)

func newCronRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/v1/cron/del_old_listings", DeleteOldListings)
	return router
}

func TestDeleteOldListings(t *testing.T) {
	config.AppConfig = &config.Config{}
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM car_listings WHERE scraped_at").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectExec("DELETE FROM images WHERE listing_id").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM price_history WHERE listing_id").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM car_listings WHERE id").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	router := newCronRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cron/del_old_listings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"count":2`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOldListingsNothingToDelete(t *testing.T) {
	config.AppConfig = &config.Config{}
	mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM car_listings WHERE scraped_at").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	router := newCronRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cron/del_old_listings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOldListingsRequiresSecretWhenConfigured(t *testing.T) {
	config.AppConfig = &config.Config{CronSecret: "sweep-secret"}
	mock := newMockDB(t)

	router := newCronRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cron/del_old_listings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM car_listings WHERE scraped_at").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cron/del_old_listings", nil)
	req.Header.Set("Authorization", "Bearer sweep-secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
