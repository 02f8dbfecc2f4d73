package algorithms

import (
	"container/heap"
	"math"

	"rover-core/models"
)

// Terrain - 경로 탐색이 참조하는 지형. 범위 밖은 통과 불가로 본다.
type Terrain interface {
	Rows() int
	Cols() int
	IsTraversable(loc models.GridLocation) bool
}

// 8방향 이동 (상하좌우 + 대각선)
var directions = [8][2]int{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
}

const (
	axisCost     = 1.0
	diagonalCost = 2.0
)

// pathNode - 탐색 중 셀 상태. 부모는 arena 인덱스로 가리킨다.
type pathNode struct {
	loc      models.GridLocation
	g        float64 // 시작점부터 비용
	h        float64 // 목표까지 유클리드 거리
	parent   int     // -1 = 시작점
	diagonal bool    // 들어온 간선이 대각선인지
	walkable bool    // 여유 거리 검사 결과
	closed   bool
	seq      int // 처음 발견된 순서 (동점 처리)
	index    int // for heap, -1 = 열린 목록에 없음
}

func (n *pathNode) f() float64 { return n.g + n.h }

// openList - A* 우선순위 큐 (arena 인덱스 저장)
type openList struct {
	arena *[]pathNode
	items []int
}

func (pq *openList) Len() int { return len(pq.items) }

func (pq *openList) Less(i, j int) bool {
	a := &(*pq.arena)[pq.items[i]]
	b := &(*pq.arena)[pq.items[j]]
	if a.f() != b.f() {
		return a.f() < b.f()
	}
	return a.seq < b.seq
}

func (pq *openList) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	(*pq.arena)[pq.items[i]].index = i
	(*pq.arena)[pq.items[j]].index = j
}

func (pq *openList) Push(x interface{}) {
	id := x.(int)
	(*pq.arena)[id].index = len(pq.items)
	pq.items = append(pq.items, id)
}

func (pq *openList) Pop() interface{} {
	n := len(pq.items)
	id := pq.items[n-1]
	pq.items = pq.items[:n-1]
	(*pq.arena)[id].index = -1
	return id
}

// Pathfinder - 여유 거리를 고려하는 8방향 A*
type Pathfinder struct {
	terrain   Terrain
	clearance int
}

// NewPathfinder - clearance는 셀 주변 8방향으로 확보해야 하는 셀 수
func NewPathfinder(terrain Terrain, clearance int) *Pathfinder {
	if clearance < 0 {
		clearance = 0
	}
	return &Pathfinder{terrain: terrain, clearance: clearance}
}

func (pf *Pathfinder) Clearance() int { return pf.clearance }

// HasClearance - loc 자신과 8방향으로 clearance 셀까지 모두 통과 가능한지.
// 맵 밖으로 나가는 부분은 검사하지 않는다.
func (pf *Pathfinder) HasClearance(loc models.GridLocation) bool {
	if !pf.terrain.IsTraversable(loc) {
		return false
	}
	for _, dir := range directions {
		for step := 1; step <= pf.clearance; step++ {
			cell := loc.Offset(dir[0]*step, dir[1]*step)
			if !pf.inBounds(cell) {
				break
			}
			if !pf.terrain.IsTraversable(cell) {
				return false
			}
		}
	}
	return true
}

func (pf *Pathfinder) inBounds(loc models.GridLocation) bool {
	return loc.Row >= 0 && loc.Row < pf.terrain.Rows() && loc.Col >= 0 && loc.Col < pf.terrain.Cols()
}

// SearchPath - start에서 goal까지의 셀 목록 (start 제외, goal 포함).
// 경로가 없으면 빈 목록. 양 끝점의 통과 가능 여부는 호출자가 먼저 확인한다.
func (pf *Pathfinder) SearchPath(start, goal models.GridLocation) []models.GridLocation {
	if !pf.inBounds(start) || !pf.inBounds(goal) {
		return []models.GridLocation{}
	}
	if start == goal {
		return []models.GridLocation{goal}
	}

	cols := pf.terrain.Cols()
	lookup := make([]int, pf.terrain.Rows()*cols)
	for i := range lookup {
		lookup[i] = -1
	}

	arena := make([]pathNode, 0, 256)
	open := &openList{arena: &arena}
	heap.Init(open)

	addNode := func(loc models.GridLocation, parent int, g float64, diagonal, walkable bool) int {
		id := len(arena)
		arena = append(arena, pathNode{
			loc:      loc,
			g:        g,
			h:        heuristic(loc, goal),
			parent:   parent,
			diagonal: diagonal,
			walkable: walkable,
			seq:      id,
			index:    -1,
		})
		lookup[loc.Row*cols+loc.Col] = id
		return id
	}

	heap.Push(open, addNode(start, -1, 0, false, true))

	// A* 메인 루프
	for open.Len() > 0 {
		currentID := heap.Pop(open).(int)
		arena[currentID].closed = true
		current := arena[currentID]

		// 목표 도달
		if current.loc == goal {
			return reconstructPath(arena, currentID)
		}

		for _, dir := range directions {
			next := current.loc.Offset(dir[0], dir[1])
			if !pf.inBounds(next) {
				continue
			}

			diagonal := dir[0] != 0 && dir[1] != 0
			cost := axisCost
			if diagonal {
				cost = diagonalCost
			}
			tentativeG := current.g + cost

			id := lookup[next.Row*cols+next.Col]
			if id < 0 {
				walkable := pf.HasClearance(next)
				id = addNode(next, currentID, tentativeG, diagonal, walkable)
				if walkable {
					heap.Push(open, id)
				}
				continue
			}

			node := &arena[id]
			if node.closed || !node.walkable {
				continue
			}
			// 더 나은 경로 발견: 제자리에서 갱신
			if tentativeG < node.g {
				node.g = tentativeG
				node.parent = currentID
				node.diagonal = diagonal
				heap.Fix(open, node.index)
			}
		}
	}

	// 경로 없음
	return []models.GridLocation{}
}

// heuristic - 휴리스틱 함수 (유클리드 거리)
func heuristic(a, b models.GridLocation) float64 {
	dr := float64(a.Row - b.Row)
	dc := float64(a.Col - b.Col)
	return math.Sqrt(dr*dr + dc*dc)
}

// reconstructPath - 경로 재구성 (시작점 제외)
func reconstructPath(arena []pathNode, goalID int) []models.GridLocation {
	var path []models.GridLocation
	for id := goalID; arena[id].parent >= 0; id = arena[id].parent {
		path = append(path, arena[id].loc)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
