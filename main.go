/* main.go
 * The "main" method for running the tournament service. Starts the HTTP server and the
 * Discord bot over a shared API instance. For details see `readme.md`
 * Usage: go run main.go -addr="<listen addr>" -test="<true|false>"
 */

package main

import (
	"context"
	"flag"
	"log"
	"os"

	"tourney-bot/api/api"
	"tourney-bot/bot"
	"tourney-bot/web"

	"github.com/joho/godotenv"
)

func main() {
	err := godotenv.Load()

	//Flags
	addrPtr := flag.String("addr", ":8080", "Listen address for the HTTP server")
	dbPtr := flag.String("db", "tourney", "Mongo database name")
	testPtr := flag.String("test", "false", "Use main or test bot: takes true or false as argument")

	flag.Parse()

	if err != nil {
		log.Fatal("Error loading .env file")
	}

	useTestBot, err := convertStrToBool(*testPtr)
	if err != nil {
		log.Fatal("Invalid \"test\" flag. Should be true or false")
	}
	discordToken := os.Getenv("DISCORD_PROD_TOKEN")
	if useTestBot {
		discordToken = os.Getenv("DISCORD_BETA_TOKEN")
	}

	operators := splitList(os.Getenv("OPERATOR_STEAM_IDS"))
	if len(operators) == 0 {
		log.Println("warning: OPERATOR_STEAM_IDS is empty, nobody can create tournaments or assign lobbies")
	}

	apiPtr, err := api.NewAPI(*dbPtr, os.Getenv("MONGO_URI"), os.Getenv("OPENDOTA_URL"), operators, os.Getenv("ADMIN_CHANNEL_ID"))
	if err != nil {
		log.Fatalf("failed to initialize API: %v", err)
	}
	defer func() {
		if err := apiPtr.Store.GetClient().Disconnect(context.TODO()); err != nil {
			panic(err)
		}
	}()

	tourneyBot, err := bot.NewBot(
		discordToken,
		os.Getenv("GUILD_ID"),
		os.Getenv("ADMIN_CHANNEL_ID"),
		os.Getenv("INVITE_CHANNEL_ID"),
		os.Getenv("TEAM_CATEGORY_ID"),
		apiPtr,
	)
	if err != nil {
		log.Fatalf("failed to initialize bot: %v", err)
	}

	go func() {
		if err := web.Start(web.Config{Addr: *addrPtr, API: apiPtr}); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if err := tourneyBot.Run(); err != nil {
		log.Fatalf("bot failed: %v", err)
	}
}
