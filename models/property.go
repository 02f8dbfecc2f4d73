package models

import "fmt"

// Property - 격자 셀에 저장되는 지형 속성
type Property int

const (
	PropertyNone Property = iota
	PropertyObstacle
	PropertyCrater
	PropertyRadiation
	PropertyTracks
	PropertyBorder
	PropertyNoGoZone
	PropertyTracksFootsteps
	PropertyTracksVehicle
	PropertyTracksLanding

	// PropertyCount - 속성 개수 (PropertyNone 포함)
	PropertyCount
)

var propertyNames = [PropertyCount]string{
	PropertyNone:            "none",
	PropertyObstacle:        "obstacle",
	PropertyCrater:          "crater",
	PropertyRadiation:       "radiation",
	PropertyTracks:          "tracks",
	PropertyBorder:          "border",
	PropertyNoGoZone:        "nogo",
	PropertyTracksFootsteps: "tracks_footsteps",
	PropertyTracksVehicle:   "tracks_vehicle",
	PropertyTracksLanding:   "tracks_landing",
}

// AccessibleProperties - 최대 가능도 판정 시 우선순위 순서
// 같은 믿음값이면 앞에 있는 속성이 선택된다.
var AccessibleProperties = []Property{
	PropertyTracksFootsteps,
	PropertyTracksVehicle,
	PropertyTracksLanding,
	PropertyTracks,
	PropertyObstacle,
	PropertyNoGoZone,
	PropertyCrater,
	PropertyRadiation,
	PropertyBorder,
}

// ImpassableProperties - 통과 불가 판정에 쓰이는 속성
var ImpassableProperties = []Property{
	PropertyObstacle,
	PropertyCrater,
	PropertyNoGoZone,
}

func (p Property) String() string {
	if p < 0 || p >= PropertyCount {
		return fmt.Sprintf("property(%d)", int(p))
	}
	return propertyNames[p]
}

// Valid - 저장 가능한 속성인지 (PropertyNone 제외)
func (p Property) Valid() bool {
	return p > PropertyNone && p < PropertyCount
}

// ParseProperty - 이름으로 속성 찾기
func ParseProperty(name string) (Property, error) {
	for i, n := range propertyNames {
		if n == name {
			return Property(i), nil
		}
	}
	return PropertyNone, fmt.Errorf("알 수 없는 속성: %q", name)
}

func (p Property) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Property) UnmarshalText(text []byte) error {
	parsed, err := ParseProperty(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// RGB - 0.0~1.0 범위 색상
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}
