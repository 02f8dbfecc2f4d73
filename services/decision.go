package services

import (
	"errors"
	"fmt"
	"log"

	"rover-core/algorithms"
	"rover-core/config"
	"rover-core/models"

	"github.com/golang/geo/r2"
)

var (
	// ErrNotTraversable - 출발점이나 목적지가 통과 불가 셀
	ErrNotTraversable = errors.New("통과할 수 없는 셀")
	// ErrUnreachable - 열린 목록이 빌 때까지 목적지에 닿지 못함
	ErrUnreachable = errors.New("경로를 찾을 수 없음")
)

// 목적지 보정 시 살펴보는 방향 (왼쪽, 오른쪽, 위, 아래)
var adjustDirections = [4][2]int{
	{0, -1}, {0, 1}, {-1, 0}, {1, 0},
}

// DecisionMaker - 경로를 웨이포인트로 나눠 주고, 맵이 바뀌면 다시 계획한다
type DecisionMaker struct {
	world      *WorldMap
	pathfinder *algorithms.Pathfinder
	stride     int
	showPath   bool

	path        []models.GridLocation
	cursor      int                 // 다음에 내줄 웨이포인트 인덱스
	anchor      models.GridLocation // 마지막으로 내준 웨이포인트 (없으면 출발점)
	destination models.GridLocation // 요청받은 목적지 (보정 전)
	goal        models.GridLocation // 보정된 목적지
	replans     int
}

// NewDecisionMaker - 확보 거리와 웨이포인트 간격은 설정에서 가져온다
func NewDecisionMaker(world *WorldMap, s config.Settings) *DecisionMaker {
	stride := s.WaypointStride
	if stride < 1 {
		stride = 1
	}
	return &DecisionMaker{
		world:      world,
		pathfinder: algorithms.NewPathfinder(world, s.Clearance),
		stride:     stride,
		showPath:   s.Debug.ShowPath,
	}
}

// FindPath - 로버 위치(m)에서 목적지 셀까지 경로 계획.
// 성공하면 웨이포인트 커서를 처음으로 되돌린다.
func (dm *DecisionMaker) FindPath(robot r2.Point, destination models.GridLocation) error {
	start := dm.world.MetricToGrid(robot)
	if start == models.OutOfBoundsLocation {
		return fmt.Errorf("로버 위치 (%.3f, %.3f): %w", robot.X, robot.Y, ErrOutOfBounds)
	}
	if dm.world.IsOutOfBounds(destination) {
		return fmt.Errorf("목적지 %v: %w", destination, ErrOutOfBounds)
	}

	goal := dm.AdjustDestination(destination)
	path, err := dm.plan(start, goal)
	if err != nil {
		dm.path = nil
		return err
	}

	dm.path = path
	dm.cursor = 0
	dm.anchor = start
	dm.destination = destination
	dm.goal = goal
	dm.replans = 0

	if goal != destination {
		log.Printf("📍 목적지 보정: %v → %v", destination, goal)
	}
	if dm.showPath {
		log.Printf("🗺️ 경로 %d칸: %v", len(path), path)
	}
	return nil
}

// Preview - 상태를 바꾸지 않고 두 셀 사이 경로만 계산
func (dm *DecisionMaker) Preview(start, destination models.GridLocation) ([]models.GridLocation, models.GridLocation, error) {
	if dm.world.IsOutOfBounds(start) || dm.world.IsOutOfBounds(destination) {
		return nil, destination, fmt.Errorf("%v → %v: %w", start, destination, ErrOutOfBounds)
	}
	goal := dm.AdjustDestination(destination)
	path, err := dm.plan(start, goal)
	return path, goal, err
}

func (dm *DecisionMaker) plan(start, goal models.GridLocation) ([]models.GridLocation, error) {
	if !dm.world.IsTraversable(start) {
		return nil, fmt.Errorf("출발점 %v: %w", start, ErrNotTraversable)
	}
	if !dm.world.IsTraversable(goal) {
		return nil, fmt.Errorf("목적지 %v: %w", goal, ErrNotTraversable)
	}
	path := dm.pathfinder.SearchPath(start, goal)
	if len(path) == 0 {
		return nil, fmt.Errorf("%v → %v: %w", start, goal, ErrUnreachable)
	}
	return path, nil
}

// NextPosition - 다음 웨이포인트의 셀 중심 좌표.
// 웨이포인트가 막혔으면 마지막 웨이포인트(또는 출발점)에서 원래 목적지로 다시 계획한다.
// 경로가 없거나 재계획에 실패하면 false.
func (dm *DecisionMaker) NextPosition() (r2.Point, bool) {
	if dm.cursor >= len(dm.path) {
		return r2.Point{}, false
	}

	next := dm.path[dm.cursor]
	if !dm.pathfinder.HasClearance(next) {
		if err := dm.replan(); err != nil {
			log.Printf("❌ 재계획 실패: %v", err)
			return r2.Point{}, false
		}
		next = dm.path[dm.cursor]
	}

	if dm.cursor+dm.stride < len(dm.path) {
		dm.cursor += dm.stride
	} else {
		dm.cursor++
	}
	dm.anchor = next

	p, err := dm.world.GridToMetricCentre(next)
	if err != nil {
		log.Printf("❌ 웨이포인트 변환 실패: %v", err)
		return r2.Point{}, false
	}
	return p, true
}

func (dm *DecisionMaker) replan() error {
	dm.replans++
	goal := dm.AdjustDestination(dm.destination)
	log.Printf("🔄 웨이포인트 %v 막힘, %v에서 재계획", dm.path[dm.cursor], dm.anchor)

	path, err := dm.plan(dm.anchor, goal)
	if err != nil {
		dm.path = nil
		dm.cursor = 0
		return err
	}
	dm.path = path
	dm.cursor = 0
	dm.goal = goal
	return nil
}

// AdjustDestination - 목적지 주변 clearance 칸 안에 통과 불가 셀이 있으면
// 반대 방향으로 한 칸씩 옮긴다. 옮길 칸이 맵 밖이거나 통과 불가면 그대로 둔다.
func (dm *DecisionMaker) AdjustDestination(destination models.GridLocation) models.GridLocation {
	adjusted := destination
	clearance := dm.pathfinder.Clearance()
	for _, dir := range adjustDirections {
		for d := 1; d <= clearance; d++ {
			candidate := adjusted.Offset(dir[0]*d, dir[1]*d)
			if dm.world.IsOutOfBounds(candidate) {
				break
			}
			if dm.world.IsTraversable(candidate) {
				continue
			}
			nudged := adjusted.Offset(-dir[0], -dir[1])
			if dm.world.IsTraversable(nudged) {
				adjusted = nudged
			}
		}
	}
	return adjusted
}

// HasReached - 경로를 다 썼거나 경로가 없으면 true
func (dm *DecisionMaker) HasReached() bool {
	return dm.path == nil || dm.cursor > len(dm.path)-1
}

func (dm *DecisionMaker) State() models.NavigationState {
	switch {
	case dm.path == nil:
		return models.NavIdle
	case dm.HasReached():
		return models.NavReached
	}
	return models.NavFollowing
}

// Path - 현재 경로 복사본
func (dm *DecisionMaker) Path() []models.GridLocation {
	out := make([]models.GridLocation, len(dm.path))
	copy(out, dm.path)
	return out
}

func (dm *DecisionMaker) Goal() models.GridLocation        { return dm.goal }
func (dm *DecisionMaker) Destination() models.GridLocation { return dm.destination }
func (dm *DecisionMaker) Replans() int                     { return dm.replans }

// Reset - 경로 폐기
func (dm *DecisionMaker) Reset() {
	dm.path = nil
	dm.cursor = 0
}
