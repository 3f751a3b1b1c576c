package stat

import (
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// c0 Rissanen常数，由e(3)=65536处的精确值重新计算
const c0 = 2.86511

var (
	lnStarOnce  sync.Once
	lnStarTable []float64 // lnStarTable[n-1] = log2*(n)
	c0MaxTable  []float64 // c0MaxTable[n-1] = C0Max(n)

	c0MaxCache *lru.Cache[int, float64]
)

func init() {
	var err error
	if c0MaxCache, err = lru.New[int, float64](4096); err != nil {
		panic(err)
	}
}

// NaturalNumbersUniversalCodeLength 自然数的Rissanen通用编码长度
func NaturalNumbersUniversalCodeLength(n int) float64 {
	if n < 1 {
		panic("NaturalNumbersUniversalCodeLength: requires n >= 1")
	}
	cost := math.Log(c0)/math.Ln2 + LnStar(n)
	return cost * math.Ln2
}

// BoundedNaturalNumbersUniversalCodeLength 有上界nMax时的通用编码长度
func BoundedNaturalNumbersUniversalCodeLength(n, nMax int) float64 {
	if n < 1 {
		panic("BoundedNaturalNumbersUniversalCodeLength: requires n >= 1")
	}
	cost := math.Log(C0Max(nMax))/math.Ln2 + LnStar(n)
	return cost * math.Ln2
}

// LnStar 以2为底的log*(n)，累加迭代对数的正项
func LnStar(n int) float64 {
	if n < 1 {
		panic("LnStar: requires n >= 1")
	}
	lnStarOnce.Do(initLnStarTables)
	if n < len(lnStarTable) {
		return lnStarTable[n-1]
	}
	return iteratedLog2Sum(float64(n))
}

func iteratedLog2Sum(x float64) float64 {
	cost := 0.0
	logI := math.Log2(x)
	for logI > 0 {
		cost += logI
		logI = math.Log2(logI)
	}
	return cost
}

// C0Max 归一化常数 sum_{i<=nMax} 2^(-log*(i))，表外用积分近似余项
func C0Max(nMax int) float64 {
	if nMax < 1 {
		panic("C0Max: requires nMax >= 1")
	}
	lnStarOnce.Do(initLnStarTables)
	if nMax < len(c0MaxTable) {
		return c0MaxTable[nMax-1]
	}
	if v, ok := c0MaxCache.Get(nMax); ok {
		return v
	}

	const e3 = 65536
	ln2 := math.Ln2
	size := float64(len(c0MaxTable))
	l4 := func(x float64) float64 { return math.Log2(math.Log2(math.Log2(math.Log2(x)))) }
	l5 := func(x float64) float64 { return math.Log2(l4(x)) }

	value := c0MaxTable[len(c0MaxTable)-1]
	if nMax < e3 {
		value += math.Pow(ln2, 4) * (l4(float64(nMax)) - l4(size))
	} else {
		value += math.Pow(ln2, 4)*(1-l4(size)) + math.Pow(ln2, 5)*l5(float64(nMax))
	}
	c0MaxCache.Add(nMax, value)
	return value
}

func initLnStarTables() {
	lnStarTable = make([]float64, lnStarTableMaxN)
	c0MaxTable = make([]float64, lnStarTableMaxN)
	c0MaxTable[0] = 1
	for i := 1; i < lnStarTableMaxN; i++ {
		cost := iteratedLog2Sum(float64(i + 1))
		lnStarTable[i] = cost
		c0MaxTable[i] = c0MaxTable[i-1] + math.Pow(2, -cost)
	}
}
