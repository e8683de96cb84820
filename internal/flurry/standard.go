package flurry

// StandardEvent is a predefined analytics event.
type StandardEvent string

// StandardParam is a recognized parameter key of a standard event.
type StandardParam string

// StandardEvents is indexed by the host's standard event enum. Order is
// part of the wire contract.
var StandardEvents = [...]StandardEvent{
	"Flurry.AdClick",
	"Flurry.AdImpression",
	"Flurry.AdRewarded",
	"Flurry.AdSkipped",
	"Flurry.CreditsSpent",
	"Flurry.CreditsPurchased",
	"Flurry.CreditsEarned",
	"Flurry.AchievementUnlocked",
	"Flurry.LevelCompleted",
	"Flurry.LevelFailed",
	"Flurry.LevelUp",
	"Flurry.LevelStarted",
	"Flurry.LevelSkip",
	"Flurry.ScorePosted",
	"Flurry.ContentRated",
	"Flurry.ContentViewed",
	"Flurry.ContentSaved",
	"Flurry.ProductCustomized",
	"Flurry.AppActivated",
	"Flurry.ApplicationSubmitted",
	"Flurry.AddItemToCart",
	"Flurry.AddItemToWishList",
	"Flurry.CompletedCheckout",
	"Flurry.PaymentInfoAdded",
	"Flurry.ItemViewed",
	"Flurry.ItemListViewed",
	"Flurry.Purchased",
	"Flurry.PurchaseRefunded",
	"Flurry.RemoveItemFromCart",
	"Flurry.CheckoutInitiated",
	"Flurry.FundsDonated",
	"Flurry.UserScheduled",
	"Flurry.OfferPresented",
	"Flurry.SubscriptionStarted",
	"Flurry.SubscriptionEnded",
	"Flurry.GroupJoined",
	"Flurry.GroupLeft",
	"Flurry.TutorialStarted",
	"Flurry.TutorialCompleted",
	"Flurry.TutorialStepCompleted",
	"Flurry.TutorialSkipped",
	"Flurry.Login",
	"Flurry.Logout",
	"Flurry.UserRegistered",
	"Flurry.SearchResultViewed",
	"Flurry.KeywordSearched",
	"Flurry.LocationSearched",
	"Flurry.Invite",
	"Flurry.Share",
	"Flurry.Like",
	"Flurry.Comment",
	"Flurry.MediaCaptured",
	"Flurry.MediaStarted",
	"Flurry.MediaStopped",
	"Flurry.MediaPaused",
	"Flurry.PrivacyPromptDisplayed",
	"Flurry.PrivacyOptIn",
	"Flurry.PrivacyOptOut",
}

// StandardParams is indexed by the host's standard parameter enum.
var StandardParams = [...]StandardParam{
	"fl.ad.type",
	"fl.level.name",
	"fl.level.number",
	"fl.content.name",
	"fl.content.type",
	"fl.content.id",
	"fl.credit.name",
	"fl.credit.type",
	"fl.credit.id",
	"fl.is.currency.soft",
	"fl.currency.type",
	"fl.payment.type",
	"fl.item.name",
	"fl.item.type",
	"fl.item.id",
	"fl.item.count",
	"fl.item.category",
	"fl.item.list.type",
	"fl.price",
	"fl.total.amount",
	"fl.achievement.id",
	"fl.score",
	"fl.rating",
	"fl.transaction.id",
	"fl.success",
	"fl.is.annual.subscription",
	"fl.subscription.countries",
	"fl.trial.days",
	"fl.predicted.ltv",
	"fl.group.name",
	"fl.tutorial.name",
	"fl.step.number",
	"fl.user.id",
	"fl.method",
	"fl.query",
	"fl.search.type",
	"fl.social.content.name",
	"fl.social.content.id",
	"fl.like.type",
	"fl.media.name",
	"fl.media.type",
	"fl.media.id",
	"fl.duration",
}

// LookupStandardEvent returns the event at index i.
func LookupStandardEvent(i int) (StandardEvent, bool) {
	if i < 0 || i >= len(StandardEvents) {
		return "", false
	}
	return StandardEvents[i], true
}

// LookupStandardParam returns the parameter key at index i.
func LookupStandardParam(i int) (StandardParam, bool) {
	if i < 0 || i >= len(StandardParams) {
		return "", false
	}
	return StandardParams[i], true
}
