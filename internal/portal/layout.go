package portal

// Default layout values for the subscriber portal.
const (
	// DefaultCaptchaField is the hidden input that carries the CAPTCHA answer.
	DefaultCaptchaField = "capres"

	// DefaultSubmitField and DefaultSubmitValue form the marker the portal
	// expects when a CAPTCHA answer is re-posted.
	DefaultSubmitField = "submit"
	DefaultSubmitValue = "1"

	// DefaultTableXPath selects candidate result tables.
	DefaultTableXPath = "//table"

	// DefaultWelcomeXPath selects the element that greets the subscriber.
	DefaultWelcomeXPath = "//*[contains(@id,'welcome') or contains(@class,'welcome')]"
)

// Labels lists the accepted label texts for each snapshot field.
// Matching is exact after textnorm.Label normalization.
type Labels struct {
	SubscriptionDate []string `yaml:"subscriptionDate,omitempty"`
	Plan             []string `yaml:"plan,omitempty"`
	Status           []string `yaml:"status,omitempty"`
	AvailableBalance []string `yaml:"availableBalance,omitempty"`
	ExpiryDate       []string `yaml:"expiryDate,omitempty"`
}

// DefaultLabels returns the labels the portal renders in Persian, plus their
// English equivalents used by the portal's English skin.
func DefaultLabels() Labels {
	return Labels{
		SubscriptionDate: []string{"تاریخ اشتراک", "تاریخ ثبت نام", "Subscription Date"},
		Plan:             []string{"سرویس", "نوع سرویس", "Plan", "Service"},
		Status:           []string{"وضعیت", "وضعیت سرویس", "Status"},
		AvailableBalance: []string{"اعتبار باقیمانده", "حجم باقیمانده", "Available Balance", "Remaining Credit"},
		ExpiryDate:       []string{"تاریخ انقضا", "تاریخ پایان", "Expiry Date", "Expiration Date"},
	}
}

// Layout describes where the portal puts things.
type Layout struct {
	// CaptchaField is the name of the hidden CAPTCHA answer input.
	CaptchaField string `yaml:"captchaField,omitempty"`

	// SubmitField and SubmitValue are added when re-posting a CAPTCHA answer.
	SubmitField string `yaml:"submitField,omitempty"`
	SubmitValue string `yaml:"submitValue,omitempty"`

	// TableXPath selects tables that may hold account rows.
	TableXPath string `yaml:"tableXPath,omitempty"`

	// WelcomeXPath selects the welcome-name element.
	WelcomeXPath string `yaml:"welcomeXPath,omitempty"`

	// Labels lists the accepted label texts per snapshot field.
	Labels Labels `yaml:"labels,omitempty"`
}

// DefaultLayout returns the layout of the current portal.
func DefaultLayout() Layout {
	return Layout{
		CaptchaField: DefaultCaptchaField,
		SubmitField:  DefaultSubmitField,
		SubmitValue:  DefaultSubmitValue,
		TableXPath:   DefaultTableXPath,
		WelcomeXPath: DefaultWelcomeXPath,
		Labels:       DefaultLabels(),
	}
}

// Merge returns l with every empty field taken from defaults.
// Label lists replace the defaults per field rather than extending them.
func (l Layout) Merge(defaults Layout) Layout {
	result := defaults
	if l.CaptchaField != "" {
		result.CaptchaField = l.CaptchaField
	}
	if l.SubmitField != "" {
		result.SubmitField = l.SubmitField
	}
	if l.SubmitValue != "" {
		result.SubmitValue = l.SubmitValue
	}
	if l.TableXPath != "" {
		result.TableXPath = l.TableXPath
	}
	if l.WelcomeXPath != "" {
		result.WelcomeXPath = l.WelcomeXPath
	}
	if len(l.Labels.SubscriptionDate) > 0 {
		result.Labels.SubscriptionDate = l.Labels.SubscriptionDate
	}
	if len(l.Labels.Plan) > 0 {
		result.Labels.Plan = l.Labels.Plan
	}
	if len(l.Labels.Status) > 0 {
		result.Labels.Status = l.Labels.Status
	}
	if len(l.Labels.AvailableBalance) > 0 {
		result.Labels.AvailableBalance = l.Labels.AvailableBalance
	}
	if len(l.Labels.ExpiryDate) > 0 {
		result.Labels.ExpiryDate = l.Labels.ExpiryDate
	}
	return result
}
