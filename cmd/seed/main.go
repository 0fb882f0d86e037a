package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dugout/internal/model"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	ownerID := os.Getenv("SEED_OWNER_ID")
	if ownerID == "" {
		ownerID = "o_demo0001"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database("dugout")
	gameColl := db.Collection("games")

	jerseys := []string{"2", "7", "12", "23", "34", "45", "51", "8", "19"}
	playerIDs := make([]string, len(jerseys))
	for i := range playerIDs {
		playerIDs[i] = uuid.New().String()
	}

	game := model.Game{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     "Tigers vs Hawks (demo)",
		Jerseys:   jerseys,
		PlayerIDs: playerIDs,
		CreatedAt: time.Now(),
	}

	if _, err := gameColl.InsertOne(ctx, game); err != nil {
		log.Fatalf("Failed to insert demo game: %v", err)
	}

	fmt.Printf("Seeded demo game %s for owner %s (%d players)\n", game.ID, ownerID, len(jerseys))
}
