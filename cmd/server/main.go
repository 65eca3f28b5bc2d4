package main

import (
	"fmt"
	"log"
	"net/http"

	"tabletop/backend/internal/auth"
	"tabletop/backend/internal/config"
	"tabletop/backend/internal/database"
	"tabletop/backend/internal/game"
	"tabletop/backend/internal/handler"
	"tabletop/backend/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	// Swagger imports
	_ "tabletop/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           Tabletop Sessions API
// @version         1.0
// @description     Session coordination backend for real-time tabletop games.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	level, err := logrus.ParseLevel(config.AppConfig.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	// Connect to the database
	database.Connect(config.AppConfig.DatabaseURL)

	// Realtime coordination state is owned here and passed by
	// reference; nothing below holds it as a package-level singleton.
	registry := realtime.NewRegistry()
	turns := game.NewTurnCoordinator(game.NewGormStore(database.DB))
	gateway := realtime.NewGateway(registry, turns, nil)

	sessionHandler := handler.NewSessionHandler(registry, turns)
	wsHandler := handler.NewWSHandler(gateway)

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Session routes (protected)
		sessionRoutes := apiV1.Group("/sessions")
		sessionRoutes.Use(auth.AuthMiddleware())
		{
			sessionRoutes.POST("", sessionHandler.CreateSession)
			sessionRoutes.GET("", sessionHandler.GetOpenSessions)
			sessionRoutes.GET("/my-sessions", sessionHandler.GetMySessions) // Must be before /:id
			sessionRoutes.GET("/:id", sessionHandler.GetSessionByID)
			sessionRoutes.POST("/:id/join", sessionHandler.JoinSession)
			sessionRoutes.GET("/:id/players", sessionHandler.GetSessionPlayers)
			sessionRoutes.POST("/:id/ready", sessionHandler.ToggleReady)
			sessionRoutes.GET("/:id/gm-redirect", sessionHandler.GMRedirect)
			sessionRoutes.POST("/:id/start", sessionHandler.StartSession)
			sessionRoutes.DELETE("/:id", sessionHandler.DeleteSession)
		}

		// Websocket endpoint; authenticates via token query parameter
		// since browsers cannot set headers on websocket handshakes.
		apiV1.GET("/sessions/:id/ws", wsHandler.Serve)

		// Character routes (protected)
		characterRoutes := apiV1.Group("/characters")
		characterRoutes.Use(auth.AuthMiddleware())
		{
			characterRoutes.POST("", handler.CreateCharacter)
			characterRoutes.GET("", handler.GetMyCharacters)
			characterRoutes.GET("/:id", handler.GetCharacterByID)
		}

		// NPC routes (protected; creation is GM-only)
		npcRoutes := apiV1.Group("/npcs")
		npcRoutes.Use(auth.AuthMiddleware())
		{
			npcRoutes.POST("", handler.CreateNPC)
			npcRoutes.GET("/:sessionID", handler.GetSessionNPCs)
		}

		// Map routes (protected; mutation is GM-only)
		mapRoutes := apiV1.Group("/maps")
		mapRoutes.Use(auth.AuthMiddleware())
		{
			mapRoutes.POST("", handler.CreateMap)
			mapRoutes.GET("/:id", handler.GetMapByID)
			mapRoutes.PUT("/:id/walls", handler.UpdateWalls)
			mapRoutes.POST("/:id/validate-move", handler.ValidateMapMove)
		}
	}

	fmt.Printf("Server is running on %s\n", config.AppConfig.ListenAddr)
	fmt.Println("Swagger UI is available at http://localhost:8080/swagger/index.html")
	log.Fatal(router.Run(config.AppConfig.ListenAddr))
}
