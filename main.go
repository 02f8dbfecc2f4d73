package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"rover-core/config"
	"rover-core/handlers"
	"rover-core/models"
	"rover-core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 설정 오류: %v", err)
	}

	db, err := services.OpenDatabase(settings)
	if err != nil {
		log.Fatalf("❌ DB 초기화 실패: %v", err)
	}

	sessionID := uuid.NewString()
	logBuffer := services.NewLogBuffer(db, sessionID, settings.LogFlushSize, settings.LogFlushInterval)

	world, err := services.NewWorldMap(settings.Rows, settings.Cols, settings.GridSize)
	if err != nil {
		log.Fatalf("❌ 맵 생성 실패: %v", err)
	}
	if settings.MapFile != "" {
		if _, err := services.ImportMapFile(settings.MapFile, world); err != nil {
			log.Fatalf("❌ 맵 불러오기 실패: %v", err)
		}
	}

	commands := services.NewCommandQueue()
	telemetry := services.NewTelemetryQueue()
	events := services.NewUIEventQueue()

	commands.Observe(func(cmd models.Command) {
		if settings.Debug.ShowCommands {
			log.Printf("📤 명령 %s", cmd)
		}
		logBuffer.LogCommand(cmd)
	})

	navigator := services.NewNavigator(world, commands, telemetry, events, settings)
	navigator.SetRecorder(logBuffer)

	h := handlers.New(handlers.Deps{
		Settings:  settings,
		World:     world,
		Navigator: navigator,
		Commands:  commands,
		Telemetry: telemetry,
		Events:    events,
		Logs:      logBuffer,
		Store:     services.NewLogStore(db),
	})
	navigator.SetBroadcast(h.Clients().BroadcastMessage)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: settings.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	h.Register(app)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return h.Clients().Start(ctx) })
	g.Go(func() error { return logBuffer.Run(ctx) })
	g.Go(func() error {
		if err := navigator.Run(ctx); err != nil {
			return err
		}
		// 종료 이벤트로 루프가 끝나면 서버도 내린다
		return errExit
	})

	if settings.Simulate {
		// 실제 맵을 지상 실측값으로 쓰는 별도 맵
		truth, err := services.NewWorldMap(settings.Rows, settings.Cols, settings.GridSize)
		if err != nil {
			log.Fatalf("❌ 시뮬레이터 맵 생성 실패: %v", err)
		}
		if settings.MapFile != "" {
			if _, err := services.ImportMapFile(settings.MapFile, truth); err != nil {
				log.Fatalf("❌ 시뮬레이터 맵 불러오기 실패: %v", err)
			}
		}
		sim := services.NewSimulator(commands, h.TelemetrySink(), truth, settings)
		g.Go(func() error { return sim.Run(ctx) })
		log.Println("🧪 프로세스 내 시뮬레이터 사용")
	} else {
		log.Printf("📡 구동부 WebSocket: ws://localhost%s/websocket/actuator", settings.HTTPAddr)
	}

	g.Go(func() error {
		log.Printf("🚀 서버 시작: http://localhost%s", settings.HTTPAddr)
		log.Printf("📡 WebSocket: ws://localhost%s/websocket/web", settings.HTTPAddr)
		log.Printf("💾 로그 API: GET http://localhost%s/api/logs/*", settings.HTTPAddr)
		return app.Listen(settings.HTTPAddr)
	})
	g.Go(func() error {
		<-ctx.Done()
		return app.ShutdownWithTimeout(5 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errExit) {
		log.Fatalf("❌ 서버 종료: %v", err)
	}
	log.Println("👋 종료")
}

var errExit = errors.New("종료 요청")
