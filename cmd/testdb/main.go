// Command testdb migrates the database, seeds demo rides and prints demo
// access tokens for the gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/config"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/identity"
	repo "github.com/Temutjin2k/ride-hail-client/internal/adapter/postgres"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/pricing"
	"github.com/Temutjin2k/ride-hail-client/migrations"
	"github.com/Temutjin2k/ride-hail-client/pkg/configparser"
	"github.com/Temutjin2k/ride-hail-client/pkg/postgres"
	"github.com/Temutjin2k/ride-hail-client/pkg/trm"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	tokenTTL   = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed demo tokens")
	reset      = flag.Bool("reset", false, "Drop the schema before migrating")
)

type demoUser struct {
	Email string
	Role  types.Role
}

var users = []demoUser{
	{Email: "beka@ride.kz", Role: types.RolePassenger},
	{Email: "mans@ride.kz", Role: types.RoleDriver},
	{Email: "temu@ride.kz", Role: types.RoleDriver},
}

// demoID keeps demo identities stable across runs.
func demoID(email string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email))
}

func main() {
	flag.Parse()

	ctx := context.Background()

	var cfg config.Config
	if err := configparser.LoadAndParseYaml(*configPath, &cfg); err != nil {
		log.Fatal(err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal(config.ErrNoJWTSecret)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Pool.Close()

	if *reset {
		if err := migrations.Down(ctx, client.Pool); err != nil {
			log.Fatalf("reset: %v", err)
		}
	}
	if err := migrations.Up(ctx, client.Pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	seedRides(ctx, repo.NewRideRepo(client.Pool, trm.New(client.Pool), repo.NewRideEvent(client.Pool)))
	printTokens(identity.NewJWT(cfg.Auth.JWTSecret, nil))
}

func seedRides(ctx context.Context, rides *repo.RideRepo) {
	// short timeout for seed operations
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	passenger := demoID(users[0].Email)

	existing, err := rides.Fetch(ctx, models.RideFilter{PassengerID: &passenger, Limit: 1}, models.NewestFirst)
	if err != nil {
		log.Fatalf("seedRides: fetch: %v", err)
	}
	if len(existing) > 0 {
		log.Printf("seedRides: demo rides already present")
		return
	}

	trips := [][2]models.Location{
		{
			{Latitude: 43.2389, Longitude: 76.8897, Address: "Abay Ave 10, Almaty"},
			{Latitude: 43.2220, Longitude: 76.8512, Address: "Tole Bi St 59, Almaty"},
		},
		{
			{Latitude: 51.1282, Longitude: 71.4307, Address: "Kabanbay Batyr Ave 53, Astana"},
			{Latitude: 51.0909, Longitude: 71.4180, Address: "Mangilik El Ave 55, Astana"},
		},
	}

	for i, trip := range trips {
		price := pricing.EstimatePrice(trip[0], trip[1])
		ride := models.Ride{
			ID:             uuid.New(),
			CreatedAt:      time.Now().UTC().Add(time.Duration(i) * time.Second),
			Status:         types.StatusPending,
			Pickup:         trip[0],
			Dropoff:        trip[1],
			EstimatedPrice: &price,
			PassengerID:    passenger,
			VehicleClass:   types.DefaultVehicleClass,
		}
		if _, err := rides.Insert(ctx, ride); err != nil {
			log.Fatalf("seedRides: insert ride: %v", err)
		}
	}

	log.Printf("seedRides: inserted %d pending rides", len(trips))
}

func printTokens(jwt *identity.JWT) {
	for _, u := range users {
		token, err := jwt.Sign(models.Actor{ID: demoID(u.Email), Role: u.Role}, *tokenTTL)
		if err != nil {
			log.Fatalf("printTokens: sign %s: %v", u.Email, err)
		}
		fmt.Printf("%-14s %-10s %s\n", u.Email, u.Role, token)
	}
}
