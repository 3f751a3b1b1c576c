// Package stat MODL代价计算所需的组合数学基础函数，结果均为自然对数
package stat

import (
	"math"
	"sync"
)

const (
	lnFactorialTableSize = 100000 // 阶乘对数表的大小
	lnBellTableMaxN      = 100    // Bell数表覆盖 n < 100
	lnStarTableMaxN      = 2000   // log*和C0Max表的大小
	treeCountTableMaxN   = 5000   // Catalan和Schroder表的大小
)

var (
	lnFactorialOnce  sync.Once
	lnFactorialTable []float64
)

// LnFactorial log(n!)，表内直接返回，表外用Gamma函数
func LnFactorial(n int) float64 {
	if n < 0 {
		panic("LnFactorial: negative value")
	}
	if n < lnFactorialTableSize {
		lnFactorialOnce.Do(initLnFactorialTable)
		return lnFactorialTable[n]
	}
	return LnGamma(float64(n) + 1)
}

func initLnFactorialTable() {
	lnFactorialTable = make([]float64, lnFactorialTableSize)
	for i := 1; i < lnFactorialTableSize; i++ {
		lnFactorialTable[i] = lnFactorialTable[i-1] + math.Log(float64(i))
	}
}

// LnGamma Lanczos近似
func LnGamma(z float64) float64 {
	c := [7]float64{
		2.5066282746310005,
		76.18009172947146,
		-86.50532032941677,
		24.01409824083091,
		-1.231739572450155,
		0.1208650973866179e-2,
		-0.5395239384953e-5,
	}
	x := z
	y := x
	tmp := x + 5.5
	tmp = (x+0.5)*math.Log(tmp) - tmp
	ser := 1.000000000190015
	for i := 1; i < 7; i++ {
		y++
		ser += c[i] / y
	}
	return tmp + math.Log(c[0]*ser/x)
}

// LnBinomial log(C(n, k))
func LnBinomial(n, k int) float64 {
	if k < 0 || k > n {
		panic("LnBinomial: k out of range")
	}
	return LnFactorial(n) - LnFactorial(k) - LnFactorial(n-k)
}
