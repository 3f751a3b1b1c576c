package stat

import (
	"math"
	"sync"
)

var (
	treeCountOnce    sync.Once
	lnCatalanTable   []float64
	lnSchroderTable  []float64
	schroderRatioEnd float64 // S(n)/S(n-1) 在表末尾的值，用于表外继续递推
)

// LnCatalan 第n个Catalan数的对数，即n+1片叶子的二叉树个数
func LnCatalan(n int) float64 {
	if n < 0 {
		panic("LnCatalan: negative value")
	}
	treeCountOnce.Do(initTreeCountTables)
	if n < treeCountTableMaxN {
		return lnCatalanTable[n]
	}
	return LnFactorial(2*n) - LnFactorial(n+1) - LnFactorial(n)
}

// LnSchroder 第n个(大)Schroder数的对数
func LnSchroder(n int) float64 {
	if n < 0 {
		panic("LnSchroder: negative value")
	}
	treeCountOnce.Do(initTreeCountTables)
	if n < treeCountTableMaxN {
		return lnSchroderTable[n]
	}
	value := lnSchroderTable[treeCountTableMaxN-1]
	ratio := schroderRatioEnd
	for i := treeCountTableMaxN; i <= n; i++ {
		ratio = schroderRatio(i, ratio)
		value += math.Log(ratio)
	}
	return value
}

// schroderRatio (n+1)S(n) = 3(2n-1)S(n-1) - (n-2)S(n-2) 改写为比值递推
func schroderRatio(n int, prevRatio float64) float64 {
	return (3*float64(2*n-1) - float64(n-2)/prevRatio) / float64(n+1)
}

func initTreeCountTables() {
	lnCatalanTable = make([]float64, treeCountTableMaxN)
	lnSchroderTable = make([]float64, treeCountTableMaxN)
	for n := 1; n < treeCountTableMaxN; n++ {
		lnCatalanTable[n] = lnCatalanTable[n-1] + math.Log(2*float64(2*n-1)/float64(n+1))
	}
	lnSchroderTable[1] = math.Log(2)
	ratio := 2.0
	for n := 2; n < treeCountTableMaxN; n++ {
		ratio = schroderRatio(n, ratio)
		lnSchroderTable[n] = lnSchroderTable[n-1] + math.Log(ratio)
	}
	schroderRatioEnd = ratio
}

// NumbersCodeLength1 以2为底的Rissanen码长，不含归一化常数以外的项
func NumbersCodeLength1(n int) float64 {
	return math.Log(c0)/math.Ln2 + LnStar(n)
}

// NumbersCodeLength2 Elias gamma码长 2.log2(n)+1
func NumbersCodeLength2(n int) float64 {
	if n < 1 {
		panic("NumbersCodeLength2: requires n >= 1")
	}
	return 2*math.Log2(float64(n)) + 1
}
