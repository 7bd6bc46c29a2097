package merge

import "github.com/IM594/vivi-server-merge-tool/internal/model"

// PlanIndex 区服 ID 到计划行位置的映射，随合并改写同步更新
type PlanIndex struct {
	plan *model.Plan
	rows map[model.ServerID]int
}

// BuildPlanIndex 扫描计划每一行建立索引；同一 ID 出现多次时以最后一次为准
func BuildPlanIndex(plan *model.Plan) *PlanIndex {
	idx := &PlanIndex{
		plan: plan,
		rows: make(map[model.ServerID]int),
	}
	for i, row := range plan.Rows {
		for _, id := range row.Slots {
			if id > 0 {
				idx.rows[id] = i
			}
		}
	}
	return idx
}

// RowOf 返回 id 所在行的位置（Plan.Rows 下标）
func (x *PlanIndex) RowOf(id model.ServerID) (int, bool) {
	pos, ok := x.rows[id]
	return pos, ok
}

// FindPartner 返回 id 所在行及同行的另一个区服；partner 为 0 表示另一槽位为空
func (x *PlanIndex) FindPartner(id model.ServerID) (row int, partner model.ServerID, ok bool) {
	pos, ok := x.rows[id]
	if !ok {
		return 0, 0, false
	}
	partner, _ = x.plan.Rows[pos].Other(id)
	return pos, partner, true
}

// Len 已索引的区服数
func (x *PlanIndex) Len() int {
	return len(x.rows)
}

func (x *PlanIndex) assign(id model.ServerID, pos int) {
	if id > 0 {
		x.rows[id] = pos
	}
}
