package bonus

import (
	"github.com/shopspring/decimal"

	"sales_bonus/utils"
)

// 公式名称
// 两个社会绩效入口历史上使用了不同的系数（30和100），订单奖金也存在两套公式。
// 哪一套是正确的业务规则尚待业务方确认，这里把它们全部命名并通过配置选择，不做取舍。
const (
	SocialFormulaK30  = "social-k30"  // (上级评分 + 同事评分) × 30
	SocialFormulaK100 = "social-k100" // (上级评分 + 同事评分) × 100

	OrderFormulaRankingV1 = "order-ranking-v1" // 按产品、客户等级和成交概率计算
	OrderFormulaAmountV2  = "order-amount-v2"  // 按订单金额和客户等级计算，默认流程中未使用
)

// FlagshipProduct 旗舰产品，订单奖金系数更高
const FlagshipProduct = "Hoover for big companies"

var socialFactors = map[string]int64{
	SocialFormulaK30:  30,
	SocialFormulaK100: 100,
}

// OrderInput 订单奖金的计算输入
type OrderInput struct {
	ProductName        string
	ClientRanking      int // 数字越小客户越好
	ClosingProbability float64
	Quantity           float64
	Amount             decimal.Decimal
}

// ValidSocialFormula 判断社会绩效公式名称是否有效
func ValidSocialFormula(name string) bool {
	_, ok := socialFactors[name]
	return ok
}

// ValidOrderFormula 判断订单公式名称是否有效
func ValidOrderFormula(name string) bool {
	return name == OrderFormulaRankingV1 || name == OrderFormulaAmountV2
}

// SocialBonus 计算社会绩效奖金：round((supervisor + peer) × K)
// 评分必须为非负数
func SocialBonus(formula string, supervisor, peer float64) (int64, error) {
	factor, ok := socialFactors[formula]
	if !ok {
		return 0, utils.ValidationError("未知的社会绩效公式: %s", formula)
	}
	if supervisor < 0 || peer < 0 {
		return 0, utils.ValidationError("评分不能为负数")
	}

	total := decimal.NewFromFloat(supervisor).
		Add(decimal.NewFromFloat(peer)).
		Mul(decimal.NewFromInt(factor))
	return total.Round(0).IntPart(), nil
}

// OrderBonus 按公式计算订单奖金
// 结果为负（客户等级大于6）时按0处理，第二个返回值表示是否发生了截断
func OrderBonus(formula string, in OrderInput) (int64, bool, error) {
	var total decimal.Decimal
	switch formula {
	case OrderFormulaRankingV1:
		t, err := rankingBonus(in)
		if err != nil {
			return 0, false, err
		}
		total = t
	case OrderFormulaAmountV2:
		total = amountBonus(in)
	default:
		return 0, false, utils.ValidationError("未知的订单奖金公式: %s", formula)
	}

	bonus := total.Round(0).IntPart()
	if bonus < 0 {
		return 0, true, nil
	}
	return bonus, false, nil
}

// rankingBonus factor = (6 - ranking) × 5（旗舰产品）或 × 3（其他产品）
// bonus = (100 / closingProbability) × factor × (quantity / 2)
func rankingBonus(in OrderInput) (decimal.Decimal, error) {
	if in.ClosingProbability == 0 {
		return decimal.Zero, utils.ComputationError("成交概率为0，无法计算订单奖金")
	}

	multiplier := int64(3)
	if in.ProductName == FlagshipProduct {
		multiplier = 5
	}
	factor := decimal.NewFromInt(int64(6 - in.ClientRanking)).Mul(decimal.NewFromInt(multiplier))

	base := decimal.NewFromInt(100).DivRound(decimal.NewFromFloat(in.ClosingProbability), 16)
	quantity := decimal.NewFromFloat(in.Quantity).Div(decimal.NewFromInt(2))

	return base.Mul(factor).Mul(quantity), nil
}

// amountBonus bonus = amount × 0.05 × (1 + ranking × 0.15)
func amountBonus(in OrderInput) decimal.Decimal {
	rankingFactor := decimal.NewFromInt(1).Add(
		decimal.NewFromInt(int64(in.ClientRanking)).Mul(decimal.RequireFromString("0.15")))
	return in.Amount.Mul(decimal.RequireFromString("0.05")).Mul(rankingFactor)
}
