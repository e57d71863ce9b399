package categorymap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/profile"
)

func TestMapFlat(t *testing.T) {
	m := NewMapper(profile.CategorySystem{
		Type: profile.CategoryFlat,
		Mapping: map[string]profile.CategoryMapping{
			"餐饮":   {CategoryMain: "餐饮", CategorySub: "外食"},
			"交通出行": {CategoryMain: "交通"},
		},
	}, &logging.MockLogger{})

	res := m.Map("餐饮", "", "")
	assert.Equal(t, "餐饮", res.Main)
	assert.Equal(t, "外食", res.Sub)
	assert.Equal(t, ConfidenceTable, res.Confidence)

	// case-insensitive lookup, matching merchant mapping behavior
	res = m.Map("  餐饮 ", "", "")
	assert.Equal(t, "餐饮", res.Main)

	res = m.Map("神秘类目", "", "")
	assert.Empty(t, res.Main)
	assert.Equal(t, ConfidenceUnknown, res.Confidence)
}

func TestMapHierarchical(t *testing.T) {
	m := NewMapper(profile.CategorySystem{
		Type:          profile.CategoryHierarchical,
		PathSeparator: ".",
		Mapping: map[string]profile.CategoryMapping{
			"特殊.路径": {CategoryMain: "覆盖主类", CategorySub: "覆盖子类"},
		},
	}, &logging.MockLogger{})

	res := m.Map("餐饮.咖啡", "", "")
	assert.Equal(t, "餐饮", res.Main)
	assert.Equal(t, "咖啡", res.Sub)
	assert.Equal(t, ConfidencePath, res.Confidence)

	// an explicit table entry overrides the path split
	res = m.Map("特殊.路径", "", "")
	assert.Equal(t, "覆盖主类", res.Main)
	assert.Equal(t, "覆盖子类", res.Sub)
	assert.Equal(t, ConfidenceTable, res.Confidence)

	// only the first separator splits
	res = m.Map("餐饮.咖啡.星巴克", "", "")
	assert.Equal(t, "餐饮", res.Main)
	assert.Equal(t, "咖啡.星巴克", res.Sub)
}

func TestMapDimensionalSplit(t *testing.T) {
	system := profile.CategorySystem{
		Type: profile.CategoryDimensionalSplit,
		Mapping: map[string]profile.CategoryMapping{
			"女儿费用": {Tags: []string{"女儿"}},
			"宠物费用": {CategoryMain: "宠物", Tags: []string{"宠物"}},
		},
		KeywordFallback: map[string]string{
			"奶茶": "餐饮",
			"玩具": "购物",
		},
	}
	m := NewMapper(system, &logging.MockLogger{})

	// the person axis becomes a tag, the spending type is inferred from the
	// item text
	res := m.Map("女儿费用", "", "一点点奶茶")
	assert.Equal(t, "餐饮", res.Main)
	assert.Equal(t, []string{"女儿"}, res.Tags)
	assert.Equal(t, ConfidenceInferred, res.Confidence)

	// explicit main from the table wins at full confidence
	res = m.Map("宠物费用", "", "猫粮")
	assert.Equal(t, "宠物", res.Main)
	assert.Equal(t, []string{"宠物"}, res.Tags)
	assert.Equal(t, ConfidenceTable, res.Confidence)

	// no keyword hit leaves main empty at low confidence, tags intact
	res = m.Map("女儿费用", "", "挂号费")
	assert.Empty(t, res.Main)
	assert.Equal(t, []string{"女儿"}, res.Tags)
	assert.Equal(t, ConfidenceUnknown, res.Confidence)
}

func TestMapDimensionalNeverInfersTags(t *testing.T) {
	m := NewMapper(profile.CategorySystem{
		Type: profile.CategoryDimensionalSplit,
		Mapping: map[string]profile.CategoryMapping{
			"日常": {},
		},
		KeywordFallback: map[string]string{"奶茶": "餐饮"},
	}, &logging.MockLogger{})

	res := m.Map("日常", "", "奶茶")
	assert.Equal(t, "餐饮", res.Main)
	assert.Empty(t, res.Tags)
}

func TestMapIsDeterministic(t *testing.T) {
	m := NewMapper(profile.CategorySystem{
		Type: profile.CategoryDimensionalSplit,
		Mapping: map[string]profile.CategoryMapping{
			"日常": {},
		},
		// both keywords match the item text; sorted keyword order decides
		KeywordFallback: map[string]string{
			"咖啡": "餐饮",
			"器具": "购物",
		},
	}, &logging.MockLogger{})

	first := m.Map("日常", "", "咖啡器具")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, m.Map("日常", "", "咖啡器具"))
	}
}
