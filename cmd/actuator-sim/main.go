// actuator-sim - 판단부 서버에 WebSocket으로 붙는 구동부 시뮬레이터
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"rover-core/config"
	"rover-core/models"
	"rover-core/services"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// socketSink - 텔레메트리를 쓰기 고루틴으로 넘긴다.
// 버리지 않고 쓰기 고루틴이 받을 때까지 기다린다. ctx가 끝나면 포기한다.
type socketSink struct {
	ctx context.Context
	ch  chan models.Telemetry
}

func (s socketSink) Send(t models.Telemetry) {
	select {
	case s.ch <- t:
	case <-s.ctx.Done():
	}
}

func main() {
	url := flag.String("url", "ws://localhost:3000/websocket/actuator", "판단부 WebSocket 주소")
	mapFile := flag.String("map", "", "지상 실측 XML 맵 (선택)")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 설정 오류: %v", err)
	}
	if *mapFile == "" {
		*mapFile = settings.MapFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *url, *mapFile, settings); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Println("👋 종료")
}

func run(ctx context.Context, url, mapFile string, settings config.Settings) error {
	var truth *services.WorldMap
	if mapFile != "" {
		m, err := services.NewWorldMap(settings.Rows, settings.Cols, settings.GridSize)
		if err != nil {
			return err
		}
		if _, err := services.ImportMapFile(mapFile, m); err != nil {
			return fmt.Errorf("맵 불러오기 실패: %w", err)
		}
		truth = m
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("연결 실패 %s: %w", url, err)
	}
	defer conn.Close()
	log.Printf("✅ 판단부 연결: %s", url)

	commands := services.NewCommandQueue()
	g, ctx := errgroup.WithContext(ctx)
	sink := socketSink{ctx: ctx, ch: make(chan models.Telemetry, 64)}
	sim := services.NewSimulator(commands, sink, truth, settings)

	g.Go(func() error { return sim.Run(ctx) })

	// 읽기: 명령을 ID 그대로 로컬 큐에 넣는다
	g.Go(func() error {
		for {
			var msg inbound
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() != nil {
					// 종료 중에 쓰기 고루틴이 연결을 닫은 경우
					return nil
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return errServerClosed
				}
				return fmt.Errorf("읽기 실패: %w", err)
			}
			if msg.Type != models.MessageTypeCommand {
				log.Printf("ℹ️ %s 메시지 무시", msg.Type)
				continue
			}
			var cmd models.Command
			if err := json.Unmarshal(msg.Data, &cmd); err != nil {
				log.Printf("⚠️ 명령 해석 실패: %v", err)
				continue
			}
			if settings.Debug.ShowCommands {
				log.Printf("📥 %s", cmd)
			}
			commands.Forward(cmd)
		}
	})

	// 쓰기: 연결에 쓰는 곳은 여기 하나뿐
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				_ = conn.Close()
				return nil
			case t := <-sink.ch:
				err := conn.WriteJSON(models.WebSocketMessage{
					Type:      models.MessageTypeTelemetry,
					Data:      t,
					Timestamp: time.Now().UnixMilli(),
				})
				if err != nil {
					return fmt.Errorf("쓰기 실패: %w", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errServerClosed) {
		return err
	}
	return nil
}

// errServerClosed - 판단부가 연결을 정상 종료함. 나머지 고루틴을 멈추기 위한 값.
var errServerClosed = errors.New("판단부가 연결을 닫았습니다")
