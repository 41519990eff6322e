package appium

// Capabilities describes the device and app a session is bound to.
type Capabilities struct {
	PlatformName               string `mapstructure:"platform_name"`
	AutomationName             string `mapstructure:"automation_name"`
	DeviceName                 string `mapstructure:"device_name"`
	AppPackage                 string `mapstructure:"app_package"`
	AppActivity                string `mapstructure:"app_activity"`
	PlatformVersion            string `mapstructure:"platform_version"`
	IgnoreHiddenAPIPolicyError bool   `mapstructure:"ignore_hidden_api_policy_error"`
	NoReset                    bool   `mapstructure:"no_reset"`
}

// W3C renders the capabilities with the vendor prefixes Appium 2 expects.
func (c Capabilities) W3C() map[string]any {
	caps := map[string]any{
		"platformName":                      c.PlatformName,
		"appium:automationName":             c.AutomationName,
		"appium:deviceName":                 c.DeviceName,
		"appium:appPackage":                 c.AppPackage,
		"appium:appActivity":                c.AppActivity,
		"appium:ignoreHiddenApiPolicyError": c.IgnoreHiddenAPIPolicyError,
		"appium:noReset":                    c.NoReset,
	}
	if c.PlatformVersion != "" {
		caps["appium:platformVersion"] = c.PlatformVersion
	}
	return caps
}

// Component returns the package/activity pair used by `am start -n`.
func (c Capabilities) Component() string {
	return c.AppPackage + "/" + c.AppActivity
}

// Locator selects elements on screen.
type Locator struct {
	Using string
	Value string
}

// XPath builds an xpath locator.
func XPath(expr string) Locator {
	return Locator{Using: "xpath", Value: expr}
}

func (l Locator) String() string {
	return l.Using + "=" + l.Value
}
