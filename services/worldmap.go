package services

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"rover-core/algorithms"
	"rover-core/models"

	"github.com/golang/geo/r2"
)

// ErrOutOfBounds - 맵 범위 밖 좌표
var ErrOutOfBounds = errors.New("맵 범위를 벗어난 좌표")

// traversableThreshold - 이 값을 넘는 믿음값은 "참"으로 본다
const traversableThreshold = 0.5

var (
	outOfBoundsColor = models.RGB{R: 0.3, G: 0.3, B: 0.3}

	defaultPropertyColors = map[models.Property]models.RGB{
		models.PropertyNone:            {R: 1, G: 1, B: 1},
		models.PropertyObstacle:        {R: 0, G: 0, B: 0},
		models.PropertyCrater:          {R: 0, G: 0.1, B: 0.8},
		models.PropertyRadiation:       {R: 0, G: 0.8, B: 0.1},
		models.PropertyTracks:          {R: 1, G: 0, B: 0},
		models.PropertyTracksFootsteps: {R: 1, G: 0, B: 0},
		models.PropertyTracksVehicle:   {R: 1, G: 0, B: 0},
		models.PropertyTracksLanding:   {R: 1, G: 0, B: 0},
		models.PropertyBorder:          {R: 0.6, G: 0.6, B: 0.8},
		models.PropertyNoGoZone:        {R: 0.6, G: 0.6, B: 0.8},
	}
)

// WorldMap - 속성별 믿음값 격자. 제어 루프와 HTTP 핸들러가 함께 접근한다.
type WorldMap struct {
	mu sync.RWMutex

	gridSize float64
	rows     int
	cols     int
	origin   models.GridLocation // 미터 좌표 (0,0)이 속한 셀
	topLeft  r2.Point

	beliefs     [models.PropertyCount]*algorithms.Matrix[float64]
	colors      map[models.Property]models.RGB
	landingSite r2.Point
}

// NewWorldMap - rows x cols 맵 생성. 원점은 가운데 셀.
func NewWorldMap(rows, cols int, gridSize float64) (*WorldMap, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("맵 크기가 잘못되었습니다: %dx%d", rows, cols)
	}
	if gridSize <= 0 {
		return nil, fmt.Errorf("격자 크기는 0보다 커야 합니다: %v", gridSize)
	}

	origin := models.GridLocation{Row: rows / 2, Col: cols / 2}
	m := &WorldMap{
		gridSize: gridSize,
		rows:     rows,
		cols:     cols,
		origin:   origin,
		topLeft: r2.Point{
			X: -float64(origin.Col) * gridSize,
			Y: -float64(origin.Row) * gridSize,
		},
		colors: make(map[models.Property]models.RGB, len(defaultPropertyColors)),
	}
	for p := models.PropertyNone + 1; p < models.PropertyCount; p++ {
		m.beliefs[p] = algorithms.NewMatrix(rows, cols, 0.0)
	}
	for p, c := range defaultPropertyColors {
		m.colors[p] = c
	}
	return m, nil
}

func (m *WorldMap) Rows() int                   { return m.rows }
func (m *WorldMap) Cols() int                   { return m.cols }
func (m *WorldMap) GridSize() float64           { return m.gridSize }
func (m *WorldMap) Origin() models.GridLocation { return m.origin }

// Frame - 래스터화 기준 (좌상단 꼭짓점, 셀 크기)
func (m *WorldMap) Frame() algorithms.Frame {
	return algorithms.Frame{TopLeft: m.topLeft, GridSize: m.gridSize}
}

func mustBeStored(p models.Property) {
	if !p.Valid() {
		panic(fmt.Sprintf("worldmap: %s 속성은 저장되지 않습니다", p))
	}
}

// Get - 셀의 속성 믿음값
func (m *WorldMap) Get(p models.Property, loc models.GridLocation) (float64, error) {
	mustBeStored(p)
	if m.IsOutOfBounds(loc) {
		return 0, fmt.Errorf("%s 조회 %v: %w", p, loc, ErrOutOfBounds)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.beliefs[p].At(loc.Row, loc.Col), nil
}

// Set - 셀의 속성 믿음값 변경. 값은 잘라내지 않는다.
func (m *WorldMap) Set(p models.Property, loc models.GridLocation, value float64) error {
	mustBeStored(p)
	if m.IsOutOfBounds(loc) {
		return fmt.Errorf("%s 설정 %v: %w", p, loc, ErrOutOfBounds)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beliefs[p].Set(loc.Row, loc.Col, value)
	return nil
}

// SetAt - 미터 좌표 기준 Set
func (m *WorldMap) SetAt(p models.Property, point r2.Point, value float64) error {
	loc := m.MetricToGrid(point)
	if loc == models.OutOfBoundsLocation {
		return fmt.Errorf("%s 설정 (%.3f, %.3f): %w", p, point.X, point.Y, ErrOutOfBounds)
	}
	return m.Set(p, loc, value)
}

// MaxLikelihoodProperty - 0.5를 넘는 믿음값 중 가장 큰 속성. 없으면 PropertyNone.
func (m *WorldMap) MaxLikelihoodProperty(loc models.GridLocation) (models.Property, error) {
	if m.IsOutOfBounds(loc) {
		return models.PropertyNone, fmt.Errorf("최대 가능도 조회 %v: %w", loc, ErrOutOfBounds)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxLikelihood(loc), nil
}

func (m *WorldMap) maxLikelihood(loc models.GridLocation) models.Property {
	best := models.PropertyNone
	bestValue := traversableThreshold
	for _, p := range models.AccessibleProperties {
		if v := m.beliefs[p].At(loc.Row, loc.Col); v > bestValue {
			best = p
			bestValue = v
		}
	}
	return best
}

// IsTraversable - 장애물, 분화구, 금지구역 믿음값이 모두 0.5 이하인지. 범위 밖은 false.
func (m *WorldMap) IsTraversable(loc models.GridLocation) bool {
	if m.IsOutOfBounds(loc) {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range models.ImpassableProperties {
		if m.beliefs[p].At(loc.Row, loc.Col) > traversableThreshold {
			return false
		}
	}
	return true
}

// MetricToGrid - 미터 좌표 → 셀. 범위 밖이면 models.OutOfBoundsLocation.
func (m *WorldMap) MetricToGrid(p r2.Point) models.GridLocation {
	loc := m.Frame().Cell(p)
	if m.IsOutOfBounds(loc) {
		return models.OutOfBoundsLocation
	}
	return loc
}

// GridToMetricCentre - 셀 중심의 미터 좌표
func (m *WorldMap) GridToMetricCentre(loc models.GridLocation) (r2.Point, error) {
	if m.IsOutOfBounds(loc) {
		return r2.Point{}, fmt.Errorf("셀 중심 %v: %w", loc, ErrOutOfBounds)
	}
	return r2.Point{
		X: (float64(loc.Col)+0.5)*m.gridSize + m.topLeft.X,
		Y: (float64(loc.Row)+0.5)*m.gridSize + m.topLeft.Y,
	}, nil
}

// IsOutOfBounds - 셀이 [0, rows) x [0, cols) 밖인지
func (m *WorldMap) IsOutOfBounds(loc models.GridLocation) bool {
	return loc.Row < 0 || loc.Row >= m.rows || loc.Col < 0 || loc.Col >= m.cols
}

// IsPointOutOfBounds - 미터 좌표가 맵 밖인지
func (m *WorldMap) IsPointOutOfBounds(p r2.Point) bool {
	return m.IsOutOfBounds(m.Frame().Cell(p))
}

// ColorAt - 화면 표시용 색상. 범위 밖은 어두운 회색.
func (m *WorldMap) ColorAt(loc models.GridLocation) models.RGB {
	if m.IsOutOfBounds(loc) {
		return outOfBoundsColor
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.colors[m.maxLikelihood(loc)]
}

// SetPropertyColor - 속성 표시 색상 변경
func (m *WorldMap) SetPropertyColor(p models.Property, c models.RGB) error {
	if !p.Valid() {
		return fmt.Errorf("%s 속성의 색상은 바꿀 수 없습니다", p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.colors[p] = c
	return nil
}

// LandingSite - 로버 착륙 지점
func (m *WorldMap) LandingSite() r2.Point {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.landingSite
}

func (m *WorldMap) SetLandingSite(p r2.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landingSite = p
}

// DistanceToNearestObstacle - p에서 가장 가까운 장애물 셀 중심까지 거리 (m).
// maxAllowable 이내의 장애물을 찾으면 바로 반환한다. 장애물이 없으면 +Inf.
func (m *WorldMap) DistanceToNearestObstacle(p r2.Point, maxAllowable float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	best := math.Inf(1)
	obstacles := m.beliefs[models.PropertyObstacle]
	for row := 0; row < m.rows; row++ {
		for col := 0; col < m.cols; col++ {
			if obstacles.At(row, col) <= traversableThreshold {
				continue
			}
			cx := (float64(col)+0.5)*m.gridSize + m.topLeft.X
			cy := (float64(row)+0.5)*m.gridSize + m.topLeft.Y
			if d := math.Hypot(cx-p.X, cy-p.Y); d < best {
				best = d
				if best < maxAllowable {
					return best
				}
			}
		}
	}
	return best
}

// Cells - 최대 가능도가 p인 셀 목록 (행 우선)
func (m *WorldMap) Cells(p models.Property) []models.GridLocation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cells []models.GridLocation
	for row := 0; row < m.rows; row++ {
		for col := 0; col < m.cols; col++ {
			loc := models.GridLocation{Row: row, Col: col}
			if m.maxLikelihood(loc) == p {
				cells = append(cells, loc)
			}
		}
	}
	return cells
}

// Snapshot - UI 렌더링용 요약
func (m *WorldMap) Snapshot() models.MapSnapshot {
	snap := models.MapSnapshot{
		Rows:        m.rows,
		Cols:        m.cols,
		GridSize:    m.gridSize,
		Origin:      m.origin,
		LandingSite: m.LandingSite(),
	}
	for _, p := range models.AccessibleProperties {
		if cells := m.Cells(p); len(cells) > 0 {
			snap.Regions = append(snap.Regions, models.MapRegion{Property: p, Cells: cells})
		}
	}
	return snap
}

// ReplaceFrom - 같은 크기의 다른 맵 내용(믿음값, 착륙 지점)으로 한 번에 교체.
// 크기나 격자 크기가 다르면 아무것도 바꾸지 않는다.
func (m *WorldMap) ReplaceFrom(other *WorldMap) error {
	if other == m {
		return nil
	}
	if other.rows != m.rows || other.cols != m.cols || other.gridSize != m.gridSize {
		return fmt.Errorf("맵 크기가 다릅니다: %dx%d@%v ← %dx%d@%v",
			m.rows, m.cols, m.gridSize, other.rows, other.cols, other.gridSize)
	}

	other.mu.RLock()
	defer other.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := models.PropertyNone + 1; p < models.PropertyCount; p++ {
		if err := m.beliefs[p].CopyFrom(other.beliefs[p]); err != nil {
			return err
		}
	}
	m.landingSite = other.landingSite
	return nil
}

// Reset - 모든 믿음값을 0으로
func (m *WorldMap) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := models.PropertyNone + 1; p < models.PropertyCount; p++ {
		m.beliefs[p].Fill(0)
	}
	m.landingSite = r2.Point{}
}
