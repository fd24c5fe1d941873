package types

// Maximum length of each signer whitelist.
const MaxWhitelistLen = 5

// Number of signatures required out of a 5-member whitelist.
const SignerThreshold = 3

// Number of supported investment stages (1, 2, 3).
const MaxStage = 3

// Ratio slots per stage: 3 leading zero years + 6 mid years + 1 last year.
const StageRatioSlots = 10

// Maximum number of live investment records per batch. Batches are the unit
// of scaling for lookup tables and share caches.
const MaxEntriesPerBatch = 30

// Validity window of a profit/refund share cache after creation.
// 25 days × 86400 seconds.
const ShareCacheExpireSecs = 25 * 86400

// First year index (0-based) in which refund distribution may begin.
const StartYearIndex = 3

// Last year index (inclusive) for refund distribution.
const MaxYearIndex = 9

// Estimated base native-currency cost of one batch execution.
const EstimateNativeBase = 100_000

// Estimated native-currency cost per entry (covers provisioning a recipient
// token account that does not yet exist).
const EstimateNativePerEntry = 5_000

// Well-known token mints. The token program itself is an external
// collaborator; mints are identified by derived addresses.
var (
	UsdtMint  = DeriveAddress([]byte("mint"), []byte("USDT"))
	HcoinMint = DeriveAddress([]byte("mint"), []byte("HCOIN"))
)
