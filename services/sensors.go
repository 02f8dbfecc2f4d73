package services

import (
	"errors"
	"math"

	"rover-core/models"

	"github.com/golang/geo/r2"
)

// ========================================
// 거리 센서 해석
// ========================================

// DistanceResult - 거리 센서 해석 결과
type DistanceResult int

const (
	DistanceMarked      DistanceResult = iota // 장애물 표시함
	DistanceInfinity                          // 측정 범위 밖
	DistanceOutOfBounds                       // 장애물이 맵 밖
)

func (r DistanceResult) String() string {
	switch r {
	case DistanceInfinity:
		return "infinity"
	case DistanceOutOfBounds:
		return "out_of_bounds"
	}
	return "marked"
}

// HeadingVector - 방향각(+y 기준 반시계, 도)의 단위 벡터
func HeadingVector(angleDegrees float64) r2.Point {
	rad := angleDegrees * math.Pi / 180
	return r2.Point{X: -math.Sin(rad), Y: math.Cos(rad)}
}

// InterpretDistance - 로버 위치에서 방향각으로 distance만큼 떨어진 점을 장애물로 표시
func InterpretDistance(world *WorldMap, distance models.Distance, robot r2.Point, angleDegrees float64) DistanceResult {
	if distance.IsInf() || math.IsNaN(float64(distance)) {
		return DistanceInfinity
	}
	hit := robot.Add(HeadingVector(angleDegrees).Mul(float64(distance)))
	if err := world.SetAt(models.PropertyObstacle, hit, 1.0); err != nil {
		return DistanceOutOfBounds
	}
	return DistanceMarked
}

// ========================================
// 색상 센서 해석
// ========================================

// SurfaceColor - 색상 센서가 구분하는 바닥 색
type SurfaceColor string

const (
	ColorBlack  SurfaceColor = "black"
	ColorWhite  SurfaceColor = "white"
	ColorBlue   SurfaceColor = "blue"
	ColorGreen  SurfaceColor = "green"
	ColorPurple SurfaceColor = "purple"
)

// 기준 색상 (센서 보정값)
var (
	ReferenceColors = map[SurfaceColor]models.RGB{
		ColorBlack:  {R: 0.013722, G: 0.015861, B: 0.013028},
		ColorWhite:  {R: 0.146857, G: 0.171757, B: 0.135786},
		ColorPurple: {R: 0.095, G: 0.095, B: 0.115},
		ColorGreen:  {R: 0.016, G: 0.060, B: 0.021},
		ColorBlue:   {R: 0.037, G: 0.141, B: 0.145},
	}

	// ColorKey - 바닥 색 → 맵 속성
	ColorKey = map[SurfaceColor]models.Property{
		ColorWhite:  models.PropertyNone,
		ColorBlack:  models.PropertyCrater,
		ColorGreen:  models.PropertyRadiation,
		ColorPurple: models.PropertyTracks,
		ColorBlue:   models.PropertyBorder,
	}

	colorOrder = []SurfaceColor{ColorBlack, ColorWhite, ColorBlue, ColorGreen, ColorPurple}
)

const (
	DefaultAllowedColorMSE       = 1.0
	DefaultAllowedGrayscaleError = 0.09
)

// ColorDetector - 가장 가까운 기준 색 찾기
type ColorDetector struct {
	reference      map[SurfaceColor]models.RGB
	defaultColor   SurfaceColor
	allowedMSE     float64
	allowedGrayErr float64
}

func NewColorDetector(reference map[SurfaceColor]models.RGB, defaultColor SurfaceColor, allowedMSE, allowedGrayscaleError float64) *ColorDetector {
	return &ColorDetector{
		reference:      reference,
		defaultColor:   defaultColor,
		allowedMSE:     allowedMSE,
		allowedGrayErr: allowedGrayscaleError,
	}
}

// NewDefaultColorDetector - 보정된 기준 색상 사용
func NewDefaultColorDetector() *ColorDetector {
	return NewColorDetector(ReferenceColors, ColorWhite, DefaultAllowedColorMSE, DefaultAllowedGrayscaleError)
}

// Detect - 무채색이면 흑/백 중 가까운 쪽, 아니면 허용 오차 안에서 가장 가까운 기준 색
func (d *ColorDetector) Detect(c models.RGB) SurfaceColor {
	if d.isGrayscale(c) {
		if mse(c, d.reference[ColorBlack]) < mse(c, d.reference[ColorWhite]) {
			return ColorBlack
		}
		return ColorWhite
	}

	best := d.defaultColor
	bestErr := math.MaxFloat64
	for _, name := range colorOrder {
		ref, ok := d.reference[name]
		if !ok {
			continue
		}
		if err := mse(c, ref); err <= d.allowedMSE && err < bestErr {
			best = name
			bestErr = err
		}
	}
	return best
}

func (d *ColorDetector) isGrayscale(c models.RGB) bool {
	sum := c.R + c.G + c.B
	if sum <= 0 {
		return true
	}
	for _, ch := range []float64{c.R / sum, c.G / sum, c.B / sum} {
		if math.Abs(ch-1.0/3.0) > d.allowedGrayErr {
			return false
		}
	}
	return true
}

func mse(a, b models.RGB) float64 {
	dr, dg, db := a.R-b.R, a.G-b.G, a.B-b.B
	return (dr*dr + dg*dg + db*db) / 3
}

// ErrUnmappedColor - ColorKey에 없는 색
var ErrUnmappedColor = errors.New("속성이 지정되지 않은 색")

// InterpretColor - 색에 해당하는 속성을 센서 위치 셀에 1.0으로 기록. 흰색(none)은 기록하지 않는다.
func InterpretColor(world *WorldMap, key map[SurfaceColor]models.Property, color SurfaceColor, sensor r2.Point) error {
	p, ok := key[color]
	if !ok {
		return ErrUnmappedColor
	}
	if p == models.PropertyNone {
		return nil
	}
	return world.SetAt(p, sensor, 1.0)
}
