package blastxml

// Element names of the BLAST XML (format 1) schema.
const (
	tagRoot       = "BlastOutput"
	tagIterations = "BlastOutput_iterations"
	tagIteration  = "Iteration"

	tagProgram   = "BlastOutput_program"
	tagVersion   = "BlastOutput_version"
	tagReference = "BlastOutput_reference"
	tagDB        = "BlastOutput_db"
	tagQueryID   = "BlastOutput_query-ID"
	tagQueryDef  = "BlastOutput_query-def"
	tagQueryLen  = "BlastOutput_query-len"
	tagParam     = "BlastOutput_param"
	tagParams    = "Parameters"

	tagParamMatrix    = "Parameters_matrix"
	tagParamExpect    = "Parameters_expect"
	tagParamGapOpen   = "Parameters_gap-open"
	tagParamGapExtend = "Parameters_gap-extend"
	tagParamFilter    = "Parameters_filter"

	tagIterNum      = "Iteration_iter-num"
	tagIterQueryID  = "Iteration_query-ID"
	tagIterQueryDef = "Iteration_query-def"
	tagIterQueryLen = "Iteration_query-len"
	tagIterHits     = "Iteration_hits"
	tagIterStat     = "Iteration_stat"
	tagIterMessage  = "Iteration_message"
	tagStatistics   = "Statistics"

	tagStatDBNum    = "Statistics_db-num"
	tagStatDBLen    = "Statistics_db-len"
	tagStatHSPLen   = "Statistics_hsp-len"
	tagStatEffSpace = "Statistics_eff-space"
	tagStatKappa    = "Statistics_kappa"
	tagStatLambda   = "Statistics_lambda"
	tagStatEntropy  = "Statistics_entropy"

	tagHit          = "Hit"
	tagHitNum       = "Hit_num"
	tagHitID        = "Hit_id"
	tagHitDef       = "Hit_def"
	tagHitAccession = "Hit_accession"
	tagHitLen       = "Hit_len"
	tagHitHSPs      = "Hit_hsps"

	tagHSP            = "Hsp"
	tagHSPNum         = "Hsp_num"
	tagHSPBitScore    = "Hsp_bit-score"
	tagHSPScore       = "Hsp_score"
	tagHSPEValue      = "Hsp_evalue"
	tagHSPQueryFrom   = "Hsp_query-from"
	tagHSPQueryTo     = "Hsp_query-to"
	tagHSPHitFrom     = "Hsp_hit-from"
	tagHSPHitTo       = "Hsp_hit-to"
	tagHSPPatternFrom = "Hsp_pattern-from"
	tagHSPPatternTo   = "Hsp_pattern-to"
	tagHSPQueryFrame  = "Hsp_query-frame"
	tagHSPHitFrame    = "Hsp_hit-frame"
	tagHSPIdentity    = "Hsp_identity"
	tagHSPPositive    = "Hsp_positive"
	tagHSPGaps        = "Hsp_gaps"
	tagHSPAlignLen    = "Hsp_align-len"
	tagHSPDensity     = "Hsp_density"
	tagHSPQSeq        = "Hsp_qseq"
	tagHSPHSeq        = "Hsp_hseq"
	tagHSPMidline     = "Hsp_midline"
)
