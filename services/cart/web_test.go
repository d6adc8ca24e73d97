package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/shopfrontend/lib/myuuid"
)

func setupWeb(t *testing.T, ctrl *gomock.Controller) (*mux.Router, *Service, *myuuid.MockUUIDer) {
	c, service, _, _, uuider := setup(t, ctrl)

	router := mux.NewRouter()
	NewWebService(service).RegisterEndpoints(c, router)

	return router, service, uuider
}

func TestCartWeb(t *testing.T) {

	t.Run("Add item and fetch cart", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		router, _, uuids := setupWeb(t, ctrl)
		uuids.EXPECT().Create().Return("item-1")

		// when
		request := httptest.NewRequest(http.MethodPost, "/cart/items",
			strings.NewReader(`{"ProductItemUID":"P1","UnitPrice":1000,"Quantity":2}`))
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)

		added := LineItem{}
		err := json.Unmarshal(response.Body.Bytes(), &added)
		assert.NoError(t, err)
		assert.Equal(t, "item-1", added.UID)
		assert.Equal(t, int64(2000), added.TotalPrice)

		request = httptest.NewRequest(http.MethodGet, "/cart", nil)
		response = httptest.NewRecorder()
		router.ServeHTTP(response, request)

		assert.Equal(t, http.StatusOK, response.Code)

		snapshot := Snapshot{}
		err = json.Unmarshal(response.Body.Bytes(), &snapshot)
		assert.NoError(t, err)
		assert.Equal(t, ModeGuest, snapshot.Mode)
		assert.Len(t, snapshot.Items, 1)
	})

	t.Run("Add item with invalid quantity is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		router, _, _ := setupWeb(t, ctrl)

		// when
		request := httptest.NewRequest(http.MethodPost, "/cart/items",
			strings.NewReader(`{"ProductItemUID":"P1","UnitPrice":1000,"Quantity":0}`))
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("Update unknown item answers not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		router, _, _ := setupWeb(t, ctrl)

		// when
		request := httptest.NewRequest(http.MethodPut, "/cart/items/unknown",
			strings.NewReader(`{"quantity":2}`))
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
	})

	t.Run("Clear empties the cart", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		router, service, uuids := setupWeb(t, ctrl)
		uuids.EXPECT().Create().Return("item-1")
		_, err := service.AddToCart(context.TODO(), LineItem{ProductItemUID: "P1", UnitPrice: 1000, Quantity: 1})
		assert.NoError(t, err)

		// when
		request := httptest.NewRequest(http.MethodDelete, "/cart", nil)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Empty(t, service.Items())
	})

	t.Run("Replace cart with the member snapshot", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// given
		router, service, uuids := setupWeb(t, ctrl)
		uuids.EXPECT().Create().Return("item-1")
		_, err := service.AddToCart(context.TODO(), LineItem{ProductItemUID: "P1", UnitPrice: 1000, Quantity: 1})
		assert.NoError(t, err)

		// when
		request := httptest.NewRequest(http.MethodPut, "/cart",
			strings.NewReader(`{"Mode":"member","Items":[{"UID":"server-1","ProductItemUID":"P9","UnitPrice":500,"Quantity":4}]}`))
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, ModeMember, service.Mode())

		_, found := service.GetItem("item-1")
		assert.False(t, found)

		item, found := service.GetItem("server-1")
		assert.True(t, found)
		assert.Equal(t, int64(2000), item.TotalPrice)
	})
}
