package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/shopfrontend/lib/mypublisher"
	"github.com/MarcGrol/shopfrontend/lib/mypubsub"
	"github.com/MarcGrol/shopfrontend/lib/mystore"
	"github.com/MarcGrol/shopfrontend/lib/mytime"
	"github.com/MarcGrol/shopfrontend/lib/myuuid"
	"github.com/MarcGrol/shopfrontend/services/cart"
	"github.com/MarcGrol/shopfrontend/services/checkout"
	"github.com/MarcGrol/shopfrontend/services/session"
)

func main() {
	c := context.Background()

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		log.Fatalf("Missing BACKEND_URL")
	}
	returnURL := os.Getenv("GATEWAY_RETURN_URL")
	if returnURL == "" {
		returnURL = "http://localhost:8080/checkout/return"
	}

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()
	publisher := mypublisher.New(pubsub, nower)

	router := mux.NewRouter()

	tokenStore, tokenStoreCleanup, err := mystore.New[session.Tokens](c, "session")
	if err != nil {
		log.Fatalf("Error creating token store: %s", err)
	}
	defer tokenStoreCleanup()

	sessionClient := session.New(backendURL, tokenStore, nil)
	session.NewWebService(sessionClient).RegisterEndpoints(c, router)

	cartStore, cartStoreCleanup, err := mystore.New[cart.Snapshot](c, "cart")
	if err != nil {
		log.Fatalf("Error creating cart store: %s", err)
	}
	defer cartStoreCleanup()

	cartService, err := cart.NewService(c, cartStore, publisher, pubsub, uuider)
	if err != nil {
		log.Fatalf("Error creating cart service: %s", err)
	}
	defer cartService.Close()
	cart.NewWebService(cartService).RegisterEndpoints(c, router)

	checkoutStore, checkoutStoreCleanup, err := mystore.New[checkout.CheckoutContext](c, "checkout")
	if err != nil {
		log.Fatalf("Error creating checkout store: %s", err)
	}
	defer checkoutStoreCleanup()

	payer, err := createPayer()
	if err != nil {
		log.Fatalf("Error creating payer: %s", err)
	}

	checkoutService := checkout.NewWebService(checkoutStore, cartService, sessionClient, payer, publisher, nower, uuider, returnURL)
	checkoutService.RegisterEndpoints(c, router)

	startWebServerBlocking(router)
}

func createPayer() (checkout.Payer, error) {
	switch os.Getenv("PAYMENT_GATEWAY") {
	case "mollie":
		return checkout.NewMolliePayer(os.Getenv("MOLLIE_API_KEY"), os.Getenv("MOLLIE_TEST_MODE") != "false")
	default:
		return checkout.NewStripePayer(os.Getenv("STRIPE_API_KEY")), nil
	}
}

func startWebServerBlocking(router *mux.Router) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting storefront runtime on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
