package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskbot-project/microservices/tasks-service/handlers"
	"taskbot-project/microservices/tasks-service/logging"
	"taskbot-project/microservices/tasks-service/messaging"
	"taskbot-project/microservices/tasks-service/repositories"
	"taskbot-project/microservices/tasks-service/scheduler"
	"taskbot-project/microservices/tasks-service/services"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Tasks Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_ERROR, Description: Error loading .env file: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	if mongoDBName == "" {
		mongoDBName = "tasks"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	if err := mongoClient.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logging.Logger.Fatalf("Event ID: REDIS_PING_FAILED, Description: Redis connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: REDIS_CONNECTED, Description: Successfully connected to Redis at %s.", redisAddr)

	notificationRepo, err := repositories.NewNotificationRepo()
	if err != nil {
		logging.Logger.Fatalf("Event ID: CASS_CONNECT_FAILED, Description: Cassandra connection failed: %v", err)
	}
	defer notificationRepo.CloseSession()
	notificationRepo.CreateTable()

	deliveryBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "delivery-gateway-cb",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	deliveryURL := os.Getenv("DELIVERY_GATEWAY_URL")
	if deliveryURL == "" {
		deliveryURL = "http://localhost:8085"
	}
	messenger := messaging.NewDeliveryClient(deliveryURL, deliveryBreaker)

	taskRepo := repositories.NewMongoTaskRepository(mongoClient, mongoDBName)
	jobStore := scheduler.NewRedisJobStore(redisClient)
	jobManager := scheduler.NewManager(jobStore)

	notificationService := services.NewNotificationService(notificationRepo)
	taskService := services.NewTaskService(taskRepo, jobManager, messenger)
	reportService := services.NewReportService(taskRepo, jobManager, messenger, notificationService)

	dispatcher := scheduler.NewDispatcher(taskRepo, messenger, notificationService)
	worker := scheduler.NewWorker(jobStore, dispatcher)
	worker.Start(context.Background())
	defer worker.Stop()

	taskHandler := handlers.NewTaskHandler(taskService, reportService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	r := mux.NewRouter()

	r.HandleFunc("/api/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{id}", taskHandler.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{id}", taskHandler.UpdateTask).Methods(http.MethodPut)
	r.HandleFunc("/api/tasks/{id}", taskHandler.DeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/api/tasks/{id}/confirm", taskHandler.ConfirmTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{id}/cancel", taskHandler.CancelTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{id}/complete", taskHandler.CompleteTask).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{id}/checkpoints", taskHandler.ListCheckPoints).Methods(http.MethodGet)
	r.HandleFunc("/api/checkpoints/{id}/complete", taskHandler.CompleteCheckPoint).Methods(http.MethodPost)

	r.HandleFunc("/api/notifications", notificationHandler.GetNotifications).Methods(http.MethodGet)
	r.HandleFunc("/api/notifications/read", notificationHandler.MarkNotificationAsRead).Methods(http.MethodPatch)
	r.HandleFunc("/api/notifications", notificationHandler.DeleteNotification).Methods(http.MethodDelete)

	corsRouter := enableCORS(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8084"
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
