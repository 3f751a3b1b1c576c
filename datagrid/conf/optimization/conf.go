package optimization

const (
	DefaultRandomSeed       = 1        //优化开始时的随机种子，结束后恢复
	StratifiedIndexLimit    = 10000    //超过这个范围，随机下标按分层抽样生成
	MaxRandomIndexPoolSize  = 10000000 //分层抽样的候选下标上限
	LightDiscretizationStep = 4        //轻量后优化中离散化的最大步数
	LightGroupingStep       = 2        //轻量后优化中分组的最大步数
	SupervisedSizeThreshold = 500      //超过这个实例数时，二维监督网格的粒度从2开始
)

const (
	AlgorithmGreedy     = "greedy"
	AlgorithmMultiStart = "multistart"
	AlgorithmVNS        = "vns"

	VarPartFirstImprovement = "first" //找到改进立即应用，冻结两个簇
	VarPartBestImprovement  = "best"  //每一轮只应用最好的移动
)

var (
	Debug                      = false                   //打开后每个导出都做完整的一致性检查
	MaxGranularity             = 0                       //0表示按实例数自动计算
	DeepPostOptimization       = true                    //后优化的深度，false时只做边界移动
	Algorithm                  = AlgorithmGreedy         //优化算法
	OptimizationLevel          = 0                       //MultiStart和VNS的迭代级别，2^level次
	RandomSeed           int64 = DefaultRandomSeed       //随机种子
	VarPartPolicy              = VarPartFirstImprovement //VarPart簇后优化的策略
	VarPartMaxPass             = 10                      //VarPart簇后优化的最大轮数
	MinPartPercentage          = 0.5                     //随机增加部分时最小的比例
)
