// mapview - XML 맵을 터미널에 그려 보는 도구
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"rover-core/config"
	"rover-core/models"
	"rover-core/services"

	"github.com/gdamore/tcell/v2"
)

type viewer struct {
	screen  tcell.Screen
	world   *services.WorldMap
	vehicle models.VehiclePose
	// 화면 왼쪽 위에 보이는 셀
	offsetRow, offsetCol int
}

func main() {
	rows := flag.Int("rows", 0, "맵 행 수 (0이면 설정값)")
	cols := flag.Int("cols", 0, "맵 열 수 (0이면 설정값)")
	gridSize := flag.Float64("grid", 0, "셀 크기 m (0이면 설정값)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "사용법: mapview [옵션] map.xml")
		flag.PrintDefaults()
		os.Exit(2)
	}

	s := config.Default()
	if *rows > 0 {
		s.Rows = *rows
	}
	if *cols > 0 {
		s.Cols = *cols
	}
	if *gridSize > 0 {
		s.GridSize = *gridSize
	}

	world, err := services.NewWorldMap(s.Rows, s.Cols, s.GridSize)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	imported, err := services.ImportMapFile(flag.Arg(0), world)
	if err != nil {
		log.Fatalf("❌ 맵 불러오기 실패: %v", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer screen.Fini()

	v := &viewer{screen: screen, world: world, vehicle: imported.Vehicle}
	v.run()
}

func (v *viewer) run() {
	v.draw()
	for {
		switch ev := v.screen.PollEvent().(type) {
		case *tcell.EventKey:
			if !v.handleKey(ev) {
				return
			}
		case *tcell.EventResize:
			v.screen.Sync()
		case nil:
			return
		}
		v.draw()
	}
}

func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	const step = 5
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		v.offsetRow -= step
	case tcell.KeyDown:
		v.offsetRow += step
	case tcell.KeyLeft:
		v.offsetCol -= step
	case tcell.KeyRight:
		v.offsetCol += step
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'r':
			v.offsetRow, v.offsetCol = 0, 0
		}
	}
	v.offsetRow = clamp(v.offsetRow, 0, v.world.Rows()-1)
	v.offsetCol = clamp(v.offsetCol, 0, v.world.Cols()-1)
	return true
}

func (v *viewer) draw() {
	v.screen.Clear()
	width, height := v.screen.Size()

	// 마지막 줄은 상태 표시
	vehicle := v.world.MetricToGrid(v.vehicle.Position)
	landing := v.world.MetricToGrid(v.world.LandingSite())
	for y := 0; y < height-1; y++ {
		for x := 0; x < width; x++ {
			loc := models.GridLocation{Row: v.offsetRow + y, Col: v.offsetCol + x}
			if v.world.IsOutOfBounds(loc) {
				continue
			}
			ch := ' '
			switch loc {
			case vehicle:
				ch = '@'
			case landing:
				ch = 'L'
			}
			style := tcell.StyleDefault.Background(toColor(v.world.ColorAt(loc))).Foreground(tcell.ColorWhite)
			v.screen.SetContent(x, y, ch, nil, style)
		}
	}

	status := fmt.Sprintf(" %dx%d @ %.3fm | 화면 (%d,%d) | 방향키 이동, r 처음으로, q 종료",
		v.world.Rows(), v.world.Cols(), v.world.GridSize(), v.offsetRow, v.offsetCol)
	for i, r := range []rune(status) {
		if i >= width {
			break
		}
		v.screen.SetContent(i, height-1, r, nil, tcell.StyleDefault.Reverse(true))
	}
	v.screen.Show()
}

func toColor(c models.RGB) tcell.Color {
	return tcell.NewRGBColor(channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int32 {
	return int32(clamp(int(v*255+0.5), 0, 255))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
