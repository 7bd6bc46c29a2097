package model

import (
	"fmt"
	"sort"
)

// 两个槽位的名称
const (
	SlotTarget      = 0 // 目标服
	SlotParticipant = 1 // 参与服
)

// PlanRow 合服计划中的一行，最多容纳两个区服
type PlanRow struct {
	Number int         `json:"number"` // 工作表中的行号（从 1 开始，含表头）
	Slots  [2]ServerID `json:"slots"`
}

// Target 目标服
func (r PlanRow) Target() ServerID { return r.Slots[SlotTarget] }

// Participant 参与服
func (r PlanRow) Participant() ServerID { return r.Slots[SlotParticipant] }

// Other 返回同一行中另一槽位的值；id 不在本行时 ok 为 false
func (r PlanRow) Other(id ServerID) (ServerID, bool) {
	switch id {
	case r.Slots[SlotTarget]:
		return r.Slots[SlotParticipant], true
	case r.Slots[SlotParticipant]:
		return r.Slots[SlotTarget], true
	}
	return 0, false
}

// Canonical 按规范写入：非空值升序，小号在目标服槽位，空位在后
func Canonical(ids ...ServerID) [2]ServerID {
	vals := make([]ServerID, 0, 2)
	for _, id := range ids {
		if id > 0 {
			vals = append(vals, id)
		}
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })

	var slots [2]ServerID
	copy(slots[:], vals)
	return slots
}

// String 审计日志中的行内容格式，空位显示为“空”
func (r PlanRow) String() string {
	return fmt.Sprintf("[%s + %s]", slotText(r.Slots[SlotTarget]), slotText(r.Slots[SlotParticipant]))
}

func slotText(id ServerID) string {
	if id <= 0 {
		return "空"
	}
	return fmt.Sprintf("%d", id)
}

// Plan 合服计划
type Plan struct {
	Rows []PlanRow `json:"rows"`
}

// Clone 深拷贝；每次运行都在自己的副本上改写
func (p *Plan) Clone() *Plan {
	if p == nil {
		return &Plan{}
	}
	rows := make([]PlanRow, len(p.Rows))
	copy(rows, p.Rows)
	return &Plan{Rows: rows}
}

// IDs 返回计划中每个区服 ID 出现的次数
func (p *Plan) IDs() map[ServerID]int {
	out := make(map[ServerID]int)
	for _, row := range p.Rows {
		for _, id := range row.Slots {
			if id > 0 {
				out[id]++
			}
		}
	}
	return out
}
