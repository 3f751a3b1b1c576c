package stat

import (
	"math"
	"strconv"
	"sync"

	cmap "github.com/orcaman/concurrent-map"
)

var (
	lnBellOnce  sync.Once
	lnBellTable []float64 // 下标 (n-1)*lnBellTableMaxN + k-1

	invExpSerieOnce sync.Once
	invExpSerie     []float64

	lnBellCache = cmap.New() // 表外的值
)

const invExpSerieSize = 20

// LnBell 广义Bell数B(n,k)的对数，即n个元素划分为至多k个非空组的方式数
func LnBell(n, k int) float64 {
	if n < 1 || k < 1 || k > n {
		panic("LnBell: requires 1 <= k <= n")
	}
	if n < lnBellTableMaxN {
		lnBellOnce.Do(initLnBellTable)
		return lnBellTable[(n-1)*lnBellTableMaxN+k-1]
	}
	key := strconv.Itoa(n) + ":" + strconv.Itoa(k)
	if v, ok := lnBellCache.Get(key); ok {
		return v.(float64)
	}
	value := computeLnBellValue(n, k)
	lnBellCache.Set(key, value)
	return value
}

// initLnBellTable 先算第二类Stirling数，再累加得到广义Bell数
func initLnBellTable() {
	size := lnBellTableMaxN * lnBellTableMaxN
	stirling := make([]float64, size)
	lnBellTable = make([]float64, size)

	// 下标i对应n-1
	for i := 0; i < lnBellTableMaxN; i++ {
		stirling[i*lnBellTableMaxN] = 1
		if i > 0 {
			stirling[i*lnBellTableMaxN+1] = math.Pow(2, float64(i)) - 1
		}
		if i > 1 {
			stirling[i*lnBellTableMaxN+i] = 1
		}
		if i > 2 {
			stirling[i*lnBellTableMaxN+i-1] = float64(i * (i + 1) / 2)
		}
	}
	for i := 1; i < lnBellTableMaxN; i++ {
		for j := 2; j < i-1; j++ {
			stirling[i*lnBellTableMaxN+j] = stirling[(i-1)*lnBellTableMaxN+j-1] +
				float64(j+1)*stirling[(i-1)*lnBellTableMaxN+j]
		}
	}

	for i := 1; i <= lnBellTableMaxN; i++ {
		bell := 0.0
		for j := 1; j <= i; j++ {
			bell += stirling[(i-1)*lnBellTableMaxN+j-1]
			lnBellTable[(i-1)*lnBellTableMaxN+j-1] = math.Log(bell)
		}
	}
}

func initInvExpSerie() {
	invExpSerie = make([]float64, invExpSerieSize)
	factor := 1.0
	term := 1.0
	invExpSerie[0] = 1
	for i := 1; i < invExpSerieSize; i++ {
		factor *= -float64(i)
		term += 1 / factor
		invExpSerie[i] = term
	}
}

// computeLnBellValue 围绕主项i0展开级数，用对数避免溢出
func computeLnBellValue(n, k int) float64 {
	if n == 1 {
		return 0
	}
	if n == 2 {
		return math.Log(float64(k))
	}
	invExpSerieOnce.Do(initInvExpSerie)
	epsilon := 1e-6 / float64(k)
	invExp := math.Exp(-1)

	i0 := MainBellTermIndex(n, k)
	lnTermI0 := float64(n)*math.Log(float64(i0)) - LnFactorial(i0)

	invExpFactor := func(i int) float64 {
		if k-i >= invExpSerieSize {
			return invExp
		}
		return invExpSerie[k-i]
	}

	serie := 0.0
	for i := i0; i <= k; i++ {
		term := math.Exp(float64(n)*math.Log(float64(i)) - LnFactorial(i) - lnTermI0)
		serie += term * invExpFactor(i)
		if term < epsilon {
			break
		}
	}
	for i := i0 - 1; i >= 1; i-- {
		term := math.Exp(float64(n)*math.Log(float64(i)/float64(i0)) + LnFactorial(i0) - LnFactorial(i))
		serie += term * invExpFactor(i)
		if term < epsilon {
			break
		}
	}
	return math.Log(serie) + lnTermI0
}

// MainBellTermIndex 在[1,k]上使 i^n/i! 最大的i，二分求解 i.ln(i) = n
func MainBellTermIndex(n, k int) int {
	if n <= 2 {
		panic("MainBellTermIndex: requires n > 2")
	}
	lnN := math.Log(float64(n))
	iMin := int(math.Floor(float64(n) / lnN))
	iMax := int(math.Ceil(float64(n) / (lnN - math.Log(lnN))))
	for iMax-iMin > 1 {
		iNew := (iMin + iMax) / 2
		if float64(iNew)*math.Log(float64(iNew)) > float64(n) {
			iMax = iNew
		} else {
			iMin = iNew
		}
	}
	if iMin < k {
		return iMin
	}
	return k
}
