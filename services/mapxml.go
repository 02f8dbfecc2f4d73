package services

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"rover-core/algorithms"
	"rover-core/models"

	"github.com/golang/geo/r2"
)

var (
	// ErrUnknownUnit - units 속성이 km/metres/cm/mm가 아님
	ErrUnknownUnit = errors.New("알 수 없는 단위")
	// ErrMalformedMap - 필수 요소가 없거나 값이 잘못된 맵 문서
	ErrMalformedMap = errors.New("잘못된 맵 문서")
)

// 단위 → 미터 배율
var unitScales = map[string]float64{
	"km":     1000,
	"metres": 1,
	"cm":     0.01,
	"mm":     0.001,
}

// 내보낼 때 셀 사각형이 옆 셀로 넘어가지 않도록 안쪽으로 줄이는 값
const squareEpsilon = 0.00001

// ========================================
// XML 문서 구조
// ========================================

type xmlPoint struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

type xmlArea struct {
	Points []xmlPoint `xml:"point"`
}

type xmlAttribute struct {
	Key   string `xml:"key"`
	Value string `xml:"value"`
}

type xmlBoundary struct {
	Area *xmlArea `xml:"area"`
}

type xmlHeading struct {
	Angle *float64 `xml:"angle,attr"`
}

type xmlVehicleStatus struct {
	Point   *xmlPoint   `xml:"point"`
	Heading *xmlHeading `xml:"heading"`
}

// xmlObstacle - 점 목록 또는 area 하나
type xmlObstacle struct {
	Points []xmlPoint `xml:"point"`
	Area   *xmlArea   `xml:"area"`
}

type xmlSite struct {
	Point     *xmlPoint     `xml:"point"`
	Obstacles []xmlObstacle `xml:"obstacle"`
}

type xmlCircle struct {
	Radius float64   `xml:"radius,attr"`
	Point  *xmlPoint `xml:"point"`
}

type xmlZone struct {
	State  string     `xml:"state,attr"`
	Area   *xmlArea   `xml:"area"`
	Circle *xmlCircle `xml:"circle"`
}

type xmlTrackToColor struct {
	Attributes []xmlAttribute `xml:"attribute"`
}

type xmlTrack struct {
	Type   string     `xml:"type,attr"`
	Points []xmlPoint `xml:"point"`
}

type xmlMapDocument struct {
	XMLName           xml.Name          `xml:"lunarrovermap"`
	Units             string            `xml:"units,attr"`
	Attributes        []xmlAttribute    `xml:"attribute"`
	Boundary          *xmlBoundary      `xml:"boundary"`
	VehicleStatus     *xmlVehicleStatus `xml:"vehicle-status"`
	ApolloLandingSite *xmlSite          `xml:"apollo-landing-site"`
	RoverLandingSite  *xmlSite          `xml:"rover-landing-site"`
	TrackToColor      *xmlTrackToColor  `xml:"track-to-color"`
	Obstacles         []xmlObstacle     `xml:"obstacle"`
	Zones             []xmlZone         `xml:"zone"`
	Tracks            []xmlTrack        `xml:"track"`
}

// ========================================
// 불러오기
// ========================================

// MapImport - 맵 외에 문서에서 읽은 정보
type MapImport struct {
	Units       string
	Attributes  map[string]string
	Vehicle     models.VehiclePose
	LandingSite r2.Point
	TrackColors map[string]string
}

// ImportMapFile - 파일에서 맵 불러오기
func ImportMapFile(path string, world *WorldMap) (*MapImport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("맵 파일 열기 실패: %w", err)
	}
	defer f.Close()
	return ImportMap(f, world)
}

// ImportMap - XML 문서의 장애물/구역/흔적을 world에 그려 넣는다.
// 맵 밖 좌표는 속성별로 한 번만 경고하고 건너뛴다.
func ImportMap(r io.Reader, world *WorldMap) (*MapImport, error) {
	var doc xmlMapDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("XML 파싱 실패: %v: %w", err, ErrMalformedMap)
	}

	scale, ok := unitScales[doc.Units]
	if !ok {
		return nil, fmt.Errorf("units=%q: %w", doc.Units, ErrUnknownUnit)
	}
	imp := &importer{world: world, frame: world.Frame(), scale: scale, warned: map[models.Property]bool{}}

	if doc.Boundary == nil || doc.Boundary.Area == nil {
		return nil, fmt.Errorf("boundary 없음: %w", ErrMalformedMap)
	}
	if doc.VehicleStatus == nil || doc.VehicleStatus.Point == nil {
		return nil, fmt.Errorf("vehicle-status 위치 없음: %w", ErrMalformedMap)
	}
	if doc.VehicleStatus.Heading == nil || doc.VehicleStatus.Heading.Angle == nil {
		return nil, fmt.Errorf("vehicle-status 방향 없음: %w", ErrMalformedMap)
	}
	if doc.RoverLandingSite == nil || doc.RoverLandingSite.Point == nil {
		return nil, fmt.Errorf("rover-landing-site 없음: %w", ErrMalformedMap)
	}

	if err := imp.obstacles(doc.Obstacles); err != nil {
		return nil, err
	}
	if err := imp.zones(doc.Zones); err != nil {
		return nil, err
	}
	if doc.ApolloLandingSite != nil {
		if err := imp.obstacles(doc.ApolloLandingSite.Obstacles); err != nil {
			return nil, err
		}
	}
	imp.tracks(doc.Tracks)

	result := &MapImport{
		Units:      doc.Units,
		Attributes: attributeMap(doc.Attributes),
		Vehicle: models.VehiclePose{
			Position:     imp.point(*doc.VehicleStatus.Point),
			AngleDegrees: *doc.VehicleStatus.Heading.Angle,
		},
		LandingSite: imp.point(*doc.RoverLandingSite.Point),
	}
	if doc.TrackToColor != nil {
		result.TrackColors = attributeMap(doc.TrackToColor.Attributes)
	}
	world.SetLandingSite(result.LandingSite)

	log.Printf("🗺️ 맵 불러오기 완료: 장애물 %d, 구역 %d, 흔적 %d", len(doc.Obstacles), len(doc.Zones), len(doc.Tracks))
	return result, nil
}

type importer struct {
	world  *WorldMap
	frame  algorithms.Frame
	scale  float64
	warned map[models.Property]bool
}

func (imp *importer) point(p xmlPoint) r2.Point {
	return r2.Point{X: p.X * imp.scale, Y: p.Y * imp.scale}
}

func (imp *importer) points(ps []xmlPoint) []r2.Point {
	out := make([]r2.Point, len(ps))
	for i, p := range ps {
		out[i] = imp.point(p)
	}
	return out
}

func (imp *importer) obstacles(obstacles []xmlObstacle) error {
	for _, o := range obstacles {
		switch {
		case len(o.Points) > 0:
			for _, p := range o.Points {
				imp.mark(models.PropertyObstacle, imp.frame.Cell(imp.point(p)))
			}
		case o.Area != nil && len(o.Area.Points) > 0:
			imp.markAll(models.PropertyObstacle, algorithms.RasterizePolyline(imp.frame, imp.points(o.Area.Points), true))
		default:
			return fmt.Errorf("obstacle에 점이나 area가 없음: %w", ErrMalformedMap)
		}
	}
	return nil
}

func (imp *importer) zones(zones []xmlZone) error {
	for _, z := range zones {
		var prop models.Property
		switch z.State {
		case "explored", "unexplored":
			continue
		case "nogo":
			prop = models.PropertyNoGoZone
		case "crater":
			prop = models.PropertyCrater
		case "radiation":
			prop = models.PropertyRadiation
		default:
			return fmt.Errorf("zone state=%q: %w", z.State, ErrMalformedMap)
		}

		switch {
		case z.Area != nil && len(z.Area.Points) > 0:
			imp.markAll(prop, algorithms.RasterizePolyline(imp.frame, imp.points(z.Area.Points), true))
		case z.Circle != nil && z.Circle.Point != nil:
			center := imp.point(*z.Circle.Point)
			imp.markAll(prop, algorithms.RasterizeCircle(imp.frame, center, z.Circle.Radius*imp.scale))
		default:
			return fmt.Errorf("zone에 area나 circle이 없음: %w", ErrMalformedMap)
		}
	}
	return nil
}

// tracks - 발자국은 점으로, 차량/착륙 흔적은 선으로 그린다. 모르는 종류는 무시.
func (imp *importer) tracks(tracks []xmlTrack) {
	for _, t := range tracks {
		switch t.Type {
		case "footprint":
			for _, p := range t.Points {
				imp.mark(models.PropertyTracksFootsteps, imp.frame.Cell(imp.point(p)))
			}
		case "vehicle":
			imp.markAll(models.PropertyTracksVehicle, algorithms.RasterizePolyline(imp.frame, imp.points(t.Points), false))
		case "landing":
			imp.markAll(models.PropertyTracksLanding, algorithms.RasterizePolyline(imp.frame, imp.points(t.Points), false))
		default:
			log.Printf("⚠️ 알 수 없는 흔적 종류 무시: %q", t.Type)
		}
	}
}

func (imp *importer) markAll(p models.Property, cells []models.GridLocation) {
	for _, c := range cells {
		imp.mark(p, c)
	}
}

func (imp *importer) mark(p models.Property, loc models.GridLocation) {
	if err := imp.world.Set(p, loc, 1.0); err != nil && !imp.warned[p] {
		log.Printf("⚠️ 맵 불러오기 중 범위 밖 좌표 (%s): %v", p, loc)
		imp.warned[p] = true
	}
}

func attributeMap(attrs []xmlAttribute) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[a.Key] = a.Value
	}
	return out
}

// ========================================
// 내보내기
// ========================================

// MapTracks - 내보낼 흔적 점 목록 (nil이면 생략)
type MapTracks struct {
	Footprints []r2.Point
	Vehicle    []r2.Point
	Landing    []r2.Point
}

// ExportMapFile - 파일로 맵 내보내기
func ExportMapFile(path string, world *WorldMap, pose models.VehiclePose, tracks MapTracks) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("맵 파일 생성 실패: %w", err)
	}
	if err := ExportMap(f, world, pose, tracks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ExportMap - 표시된 셀마다 셀 크기 사각형 하나씩 장애물/구역으로 기록 (단위: metres)
func ExportMap(w io.Writer, world *WorldMap, pose models.VehiclePose, tracks MapTracks) error {
	angle := pose.AngleDegrees
	landing := world.LandingSite()
	doc := xmlMapDocument{
		Units: "metres",
		Attributes: []xmlAttribute{
			{Key: "Survey Date", Value: time.Now().Format("02/01/2006")},
			{Key: "Robot Model", Value: "rover-core"},
		},
		Boundary: &xmlBoundary{Area: &xmlArea{Points: toXMLPoints(boundaryCorners(world))}},
		VehicleStatus: &xmlVehicleStatus{
			Point:   &xmlPoint{X: pose.Position.X, Y: pose.Position.Y},
			Heading: &xmlHeading{Angle: &angle},
		},
		ApolloLandingSite: &xmlSite{},
		RoverLandingSite:  &xmlSite{Point: &xmlPoint{X: landing.X, Y: landing.Y}},
		TrackToColor: &xmlTrackToColor{Attributes: []xmlAttribute{
			{Key: "vehicle", Value: "0000FF"},
			{Key: "footprint", Value: "00FF00"},
			{Key: "landing", Value: "FF0000"},
		}},
	}

	for _, square := range cellSquares(world, models.PropertyObstacle) {
		doc.Obstacles = append(doc.Obstacles, xmlObstacle{Points: toXMLPoints(square)})
	}
	for _, zone := range []struct {
		state string
		prop  models.Property
	}{
		{"nogo", models.PropertyNoGoZone},
		{"crater", models.PropertyCrater},
		{"radiation", models.PropertyRadiation},
	} {
		for _, square := range cellSquares(world, zone.prop) {
			doc.Zones = append(doc.Zones, xmlZone{State: zone.state, Area: &xmlArea{Points: toXMLPoints(square)}})
		}
	}
	if tracks.Footprints != nil {
		doc.Tracks = append(doc.Tracks, xmlTrack{Type: "footprint", Points: toXMLPoints(tracks.Footprints)})
	}
	if tracks.Vehicle != nil {
		doc.Tracks = append(doc.Tracks, xmlTrack{Type: "vehicle", Points: toXMLPoints(tracks.Vehicle)})
	}
	if tracks.Landing != nil {
		doc.Tracks = append(doc.Tracks, xmlTrack{Type: "landing", Points: toXMLPoints(tracks.Landing)})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("XML 쓰기 실패: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// boundaryCorners - 맵 네 꼭짓점 (좌상단부터 시계 방향)
func boundaryCorners(world *WorldMap) []r2.Point {
	tl := world.Frame().TopLeft
	width := float64(world.Cols()) * world.GridSize()
	height := float64(world.Rows()) * world.GridSize()
	return []r2.Point{
		tl,
		{X: tl.X + width, Y: tl.Y},
		{X: tl.X + width, Y: tl.Y + height},
		{X: tl.X, Y: tl.Y + height},
	}
}

// cellSquares - 최대 가능도 속성이 p인 셀마다 그 셀을 덮는 사각형
func cellSquares(world *WorldMap, p models.Property) [][]r2.Point {
	half := world.GridSize()/2 - squareEpsilon
	var squares [][]r2.Point
	for _, loc := range world.Cells(p) {
		c, err := world.GridToMetricCentre(loc)
		if err != nil {
			continue
		}
		squares = append(squares, []r2.Point{
			{X: c.X - half, Y: c.Y - half},
			{X: c.X + half, Y: c.Y - half},
			{X: c.X + half, Y: c.Y + half},
			{X: c.X - half, Y: c.Y + half},
		})
	}
	return squares
}

func toXMLPoints(ps []r2.Point) []xmlPoint {
	out := make([]xmlPoint, len(ps))
	for i, p := range ps {
		out[i] = xmlPoint{X: p.X, Y: p.Y}
	}
	return out
}
